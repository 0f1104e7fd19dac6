package notification

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var bookingTmpl = template.Must(template.New("booking").Parse(`<html>
<body>
    <h2>Booking Confirmation</h2>
    <p>Dear {{.UserName}},</p>
    <p>Your booking has been confirmed successfully!</p>

    <h3>Booking Details:</h3>
    <ul>
        <li><strong>Property:</strong> {{.Listing.Title}}</li>
        <li><strong>Location:</strong> {{.Listing.Location}}</li>
        <li><strong>Check-in:</strong> {{.CheckIn.Format "2006-01-02"}}</li>
        <li><strong>Check-out:</strong> {{.CheckOut.Format "2006-01-02"}}</li>
        <li><strong>Price per night:</strong> ${{.Listing.PricePerNight.StringFixed 2}}</li>
        <li><strong>Booking ID:</strong> {{.ID}}</li>
    </ul>

    <p>Thank you for choosing our travel platform!</p>
    <p>Best regards,<br>The Travel App Team</p>
</body>
</html>
`))

var paymentTmpl = template.Must(template.New("payment").Parse(`<html>
<body>
    <h2>Payment Confirmation</h2>
    <p>Your payment has been processed successfully!</p>

    <h3>Payment Details:</h3>
    <ul>
        <li><strong>Booking Reference:</strong> {{.BookingReference}}</li>
        <li><strong>Transaction ID:</strong> {{.TransactionID}}</li>
        <li><strong>Amount:</strong> ${{.Amount.StringFixed 2}}</li>
        <li><strong>Status:</strong> {{.Status}}</li>
        <li><strong>Date:</strong> {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</li>
    </ul>

    <p>Thank you for your payment!</p>
    <p>Best regards,<br>The Travel App Team</p>
</body>
</html>
`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripTags returns the text content of an HTML document, one non-blank
// line per line of output.  Character references are decoded and the
// contents of script and style elements are dropped.
func StripTags(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		text strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return text.String()
			}
			return tidy(text.String())
		case html.StartTagToken:
			if a := tokenAtom(z); a == atom.Script || a == atom.Style {
				skip++
			} else if a == atom.Br {
				text.WriteByte('\n')
			}
		case html.EndTagToken:
			if a := tokenAtom(z); a == atom.Script || a == atom.Style {
				if skip > 0 {
					skip--
				}
			}
		case html.SelfClosingTagToken:
			if tokenAtom(z) == atom.Br {
				text.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				text.Write(z.Text())
			}
		}
	}
}

func tokenAtom(z *html.Tokenizer) atom.Atom {
	name, _ := z.TagName()
	return atom.Lookup(name)
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
