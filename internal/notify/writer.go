package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Writer prints emails instead of sending them, for dry runs.
type Writer struct {
	Out io.Writer
}

func (w Writer) Send(_ context.Context, mail Email) error {
	_, err := fmt.Fprintf(
		w.Out,
		"To: %s\nSubject: %s\n\n%s\n",
		strings.Join(mail.To, ", "),
		mail.Subject,
		mail.Html,
	)
	return err
}
