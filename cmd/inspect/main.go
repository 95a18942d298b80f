// Command inspect prints a snapshot's entities with display units applied,
// one JSON object per line.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jbradberry/universe/internal/persistence/snapshot"
	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
	"github.com/jbradberry/universe/internal/sim/world"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to snapshot (.json or .json.zst)")
		typ      = flag.String("type", "", "only print entities of this type (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	if *typ != "" {
		if _, ok := components.ForType(*typ); !ok {
			fmt.Fprintf(os.Stderr, "unknown type %q (known: %v)\n", *typ, components.Types())
			os.Exit(2)
		}
	}

	if err := run(os.Stdout, *snapPath, *typ); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(os.Stderr, "invalid snapshot:", ve.Message)
		} else {
			fmt.Fprintln(os.Stderr, "inspect:", err)
		}
		os.Exit(1)
	}
}

// run writes a header line and then one displayed record per entity of typ
// (every entity when typ is empty).
func run(out io.Writer, path, typ string) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	w := world.New(world.WorldConfig{})
	if err := w.Import(snap); err != nil {
		return err
	}

	records, err := w.Display(typ)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}

	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "# turn=%d width=%d seq=%d entities=%d\n", w.Turn(), w.Width(), w.Seq(), w.Len())
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}
	return bw.Flush()
}
