package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type countOutput struct {
	Counts []int `json:"counts"`
	Total  int   `json:"total"`
}

func newCountCmd() *cobra.Command {
	var (
		in     inputFlags
		addEOS bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Count the tokens of texts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			texts, err := in.texts(cmd, args)
			if err != nil {
				return err
			}
			tok, _, err := loadTokenizer(cmd.Context(), activeCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			batch, err := tok.EncodeBatch(texts, addEOS)
			if err != nil {
				return err
			}
			out := countOutput{Counts: make([]int, len(batch))}
			for i, ids := range batch {
				out.Counts[i] = len(ids)
				out.Total += len(ids)
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			var sb strings.Builder
			for _, count := range out.Counts {
				sb.WriteString(st.id.Render(strconv.Itoa(count)))
				sb.WriteString("\n")
			}
			if len(out.Counts) > 1 {
				fmt.Fprintf(&sb, "%s %d\n", st.title.Render("total:"), out.Total)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sb.String())
			return errors.Wrap(err, "failed to write output")
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&addEOS, "eos", false, "Count the end-of-sequence token")
	addFormatFlag(cmd, &format)
	return cmd
}
