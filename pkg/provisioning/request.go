package provisioning

import (
	"encoding/xml"
	"fmt"
	"regexp"

	"github.com/aretw0/fieldbot/pkg/domain"
)

var (
	accountPattern = regexp.MustCompile(`account:(\S+)`)
	devicePattern  = regexp.MustCompile(`device:(\S+)`)
)

// ParseChangeRequest extracts the account and device tokens from a message such as
//
//	account:98xxxxxxxxx
//	device:PNP111_A_G_C610
//
// Both keys are required; nothing else is validated.
func ParseChangeRequest(text string) (domain.ChangeRequest, error) {
	acc := accountPattern.FindStringSubmatch(text)
	dev := devicePattern.FindStringSubmatch(text)

	switch {
	case acc == nil && dev == nil:
		return domain.ChangeRequest{}, fmt.Errorf("%w: missing account and device", domain.ErrFormat)
	case acc == nil:
		return domain.ChangeRequest{}, fmt.Errorf("%w: missing account", domain.ErrFormat)
	case dev == nil:
		return domain.ChangeRequest{}, fmt.Errorf("%w: missing device", domain.ErrFormat)
	}
	return domain.ChangeRequest{Account: acc[1], DeviceCode: dev[1]}, nil
}

// Credentials are the static gateway credentials sent with every request.
type Credentials struct {
	Username string
	Password string
	WSCode   string
	Token    string
	Locale   string
}

type envelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	WebNS   string   `xml:"xmlns:web,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    body     `xml:"soapenv:Body"`
}

type body struct {
	Operation operation `xml:"web:gwOperation"`
}

type operation struct {
	Input input `xml:"Input"`
}

type input struct {
	Username string  `xml:"username"`
	Password string  `xml:"password"`
	WSCode   string  `xml:"wscode"`
	Params   []param `xml:"param"`
}

type param struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	gatewayNS      = "http://webservice.bccsgw.viettel.com/"
)

// BuildEnvelope renders the gwOperation SOAP request for req.
// Values are embedded verbatim apart from the escaping XML requires.
func BuildEnvelope(creds Credentials, req domain.ChangeRequest) ([]byte, error) {
	env := envelope{
		SoapNS: soapEnvelopeNS,
		WebNS:  gatewayNS,
		Body: body{Operation: operation{Input: input{
			Username: creds.Username,
			Password: creds.Password,
			WSCode:   creds.WSCode,
			Params: []param{
				{Name: "token", Value: creds.Token},
				{Name: "locale", Value: creds.Locale},
				{Name: "account", Value: req.Account},
				{Name: "deviceCode", Value: req.DeviceCode},
			},
		}}},
	}

	out, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return out, nil
}
