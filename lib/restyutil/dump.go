package restyutil

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Output receives one formatted request/response exchange per call.
type Output interface {
	Write(id string, contents string)
}

// Dump writes every exchange made by client to output, which helps when a
// portal changes its markup. A nil output leaves the client alone.
func Dump(client *resty.Client, prefix string, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := fmt.Sprintf(
			"%s-%03d-%s.txt",
			prefix,
			atomic.AddUint64(&counter, 1),
			time.Now().Format("150405"),
		)
		output.Write(id, formatHttpMessage(res))
		slog.Debug("dumped http exchange", "id", id, "url", res.Request.URL)
		return nil
	})
}
