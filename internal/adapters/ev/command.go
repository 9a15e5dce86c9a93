package ev

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	// NetworkCode is the external network code EV expects for Bangladesh
	NetworkCode = "BD"

	xmlHeader  = `<?xml version="1.0"?>`
	xmlDoctype = `<!DOCTYPE COMMAND PUBLIC "-//Ocam//DTD XML Command 1.0//EN" "xml/command.dtd">`
)

// rechargeCommand is the EXRCTRFREQ / EXPPBREQ request body
type rechargeCommand struct {
	XMLName   xml.Name `xml:"COMMAND"`
	Type      string   `xml:"TYPE"`
	Date      string   `xml:"DATE"`
	ExtNwCode string   `xml:"EXTNWCODE"`
	MSISDN    string   `xml:"MSISDN"`
	PIN       string   `xml:"PIN"`
	LoginID   string   `xml:"LOGINID"`
	Password  string   `xml:"PASSWORD"`
	ExtCode   string   `xml:"EXTCODE"`
	ExtRefNum string   `xml:"EXTREFNUM"`
	MSISDN2   string   `xml:"MSISDN2"`
	Amount    string   `xml:"AMOUNT"`
	Language1 string   `xml:"LANGUAGE1"`
	Language2 string   `xml:"LANGUAGE2"`
	Selector  string   `xml:"SELECTOR"`
}

// balanceCommand is the EXUSRBALREQ request body
type balanceCommand struct {
	XMLName   xml.Name `xml:"COMMAND"`
	Type      string   `xml:"TYPE"`
	Date      string   `xml:"DATE"`
	ExtNwCode string   `xml:"EXTNWCODE"`
	MSISDN    string   `xml:"MSISDN"`
	PIN       string   `xml:"PIN"`
	LoginID   string   `xml:"LOGINID"`
	Password  string   `xml:"PASSWORD"`
	ExtCode   string   `xml:"EXTCODE"`
	ExtRefNum string   `xml:"EXTREFNUM"`
	Language1 string   `xml:"LANGUAGE1"`
}

// commandResponse is the reply to any COMMAND request
type commandResponse struct {
	XMLName   xml.Name `xml:"COMMAND"`
	Type      string   `xml:"TYPE"`
	TxnStatus string   `xml:"TXNSTATUS"`
	Date      string   `xml:"DATE"`
	ExtRefNum string   `xml:"EXTREFNUM"`
	TxnID     string   `xml:"TXNID"`
	Message   string   `xml:"MESSAGE"`
}

func encodeCommand(cmd interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(xmlDoctype)
	if err := xml.NewEncoder(&buf).Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeResponse parses a COMMAND reply. EV emits the same DOCTYPE it
// receives, which encoding/xml skips. Declared charsets are passed through
// as-is; the fields we read are ASCII.
func decodeResponse(body []byte) (*commandResponse, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	var resp commandResponse
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse COMMAND response: %w", err)
	}
	resp.TxnStatus = strings.TrimSpace(resp.TxnStatus)
	resp.TxnID = strings.TrimSpace(resp.TxnID)
	resp.Message = strings.TrimSpace(resp.Message)
	resp.Date = strings.TrimSpace(resp.Date)
	return &resp, nil
}
