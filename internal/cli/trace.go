// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"gitlab.com/yawning/rijndael.git"
)

// traceTable collects trace events and renders them as a table.
type traceTable struct {
	rows []table.Row
}

func (t *traceTable) Observe(ev *rijndael.Event) {
	t.rows = append(t.rows, table.Row{
		len(t.rows),
		ev.Kind.String(),
		ev.Round,
		ev.Label,
		formatBytes(ev.Data),
	})
}

func (t *traceTable) Len() int {
	return len(t.rows)
}

func (t *traceTable) Render(w io.Writer) {
	if len(t.rows) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Kind", "Round", "Step", "Bytes"})
	tw.AppendRows(t.rows)
	tw.Render()
}

func formatBytes(b []byte) string {
	return fmt.Sprintf("% x", b)
}
