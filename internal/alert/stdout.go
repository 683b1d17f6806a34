package alert

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/signalhub/internal/db"
)

type StdoutNotifier struct {
	w io.Writer
}

func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutNotifier{w: w}
}

func (n *StdoutNotifier) Name() string { return ChannelStdout }

func (n *StdoutNotifier) Notify(_ context.Context, items []*db.Item) error {
	for _, it := range items {
		if _, err := fmt.Fprintf(n.w, "%s\n%s\n", strings.Repeat("-", 60), FormatItem(it)); err != nil {
			return err
		}
	}
	return nil
}
