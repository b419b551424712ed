package main

import (
	"fmt"
	"os"

	"github.com/poiesic/rowembed/chunk"
	"github.com/poiesic/rowembed/core"
	"github.com/urfave/cli/v2"
)

// chunkCommand prints the chunks a policy produces for one text.
func chunkCommand(c *cli.Context) error {
	text := c.Args().First()
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return &core.ConfigurationError{Field: "file", Message: "cannot read " + path, Err: err}
		}
		text = string(data)
	}

	method, err := chunk.ParseMethod(c.String("method"))
	if err != nil {
		return err
	}
	policy := chunk.Policy{Method: method, Size: c.Int("size"), Overlap: c.Int("overlap")}.WithDefaults()
	if err := policy.Validate(); err != nil {
		return err
	}

	parentID := core.ParentID(text)
	w := c.App.Writer
	fmt.Fprintf(w, "parent_id: %s\n", parentID)
	fmt.Fprintf(w, "policy: %s\n", policy)

	count := 0
	for text := range chunk.Seq(text, policy) {
		ch := core.Chunk{ParentID: parentID, Seq: count, Text: text}
		fmt.Fprintf(w, "[%d] %q\n", ch.Seq, ch.Text)
		count++
	}
	fmt.Fprintf(w, "%d chunks\n", count)
	return nil
}
