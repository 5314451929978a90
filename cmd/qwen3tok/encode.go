package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	offsetsBytes = "bytes"
	offsetsRunes = "runes"
	offsetsUTF16 = "utf16"
)

type encodeFlags struct {
	in         inputFlags
	addEOS     bool
	showTokens bool
	offsets    string
	format     string
}

// encodeOutput is the JSON output of one encoded text.
type encodeOutput struct {
	Text    string   `json:"text"`
	IDs     []int    `json:"ids"`
	Tokens  []string `json:"tokens,omitempty"`
	Offsets [][2]int `json:"offsets,omitempty"`
}

func newEncodeCmd() *cobra.Command {
	var flags encodeFlags
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode texts to token ids",
		Long: "Encode texts to token ids. Texts are the arguments, or read from --input, --parquet or " +
			"stdin (one text per line).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			offsetsFn, err := offsetsFunc(flags.offsets)
			if err != nil {
				return err
			}
			texts, err := flags.in.texts(cmd, args)
			if err != nil {
				return err
			}
			tok, _, err := loadTokenizer(cmd.Context(), activeCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			results, err := tok.EncodeDetailedBatch(texts, flags.addEOS)
			if err != nil {
				return err
			}

			outputs := make([]encodeOutput, len(results))
			for i, result := range results {
				outputs[i] = encodeOutput{Text: result.Text, IDs: result.IDs}
				if flags.showTokens {
					outputs[i].Tokens = result.Tokens
					for _, offset := range offsetsFn(result) {
						outputs[i].Offsets = append(outputs[i].Offsets, [2]int{offset.Start, offset.End()})
					}
				}
			}
			if flags.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), outputs)
			}
			return printEncodings(cmd.OutOrStdout(), tok, outputs, flags.showTokens)
		},
	}
	flags.in.register(cmd)
	cmd.Flags().BoolVar(&flags.addEOS, "eos", false, "Append the end-of-sequence token")
	cmd.Flags().BoolVar(&flags.showTokens, "tokens", false, "Show the text and offsets of each token")
	cmd.Flags().StringVar(&flags.offsets, "offsets", offsetsBytes, "Unit of the offsets: bytes, runes or utf16")
	addFormatFlag(cmd, &flags.format)
	return cmd
}

func offsetsFunc(unit string) (func(*api.EncodingResult) []api.Offset, error) {
	switch unit {
	case offsetsBytes:
		return func(r *api.EncodingResult) []api.Offset { return r.Offsets }, nil
	case offsetsRunes:
		return (*api.EncodingResult).RuneOffsets, nil
	case offsetsUTF16:
		return (*api.EncodingResult).UTF16Offsets, nil
	}
	return nil, errors.Errorf("invalid --offsets %q, valid values are bytes, runes and utf16", unit)
}

func printEncodings(w io.Writer, tok *bpe.Tokenizer, outputs []encodeOutput, showTokens bool) error {
	st := newStyles(w)
	var sb strings.Builder
	for i, out := range outputs {
		if len(outputs) > 1 || showTokens {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(st.title.Render(strconv.Quote(shorten(out.Text, 60))))
			sb.WriteString("\n")
		}
		ids := make([]string, len(out.IDs))
		for j, id := range out.IDs {
			if tok.IsSpecial(id) {
				ids[j] = st.special.Render(strconv.Itoa(id))
			} else {
				ids[j] = st.id.Render(strconv.Itoa(id))
			}
		}
		sb.WriteString(strings.Join(ids, " "))
		sb.WriteString("\n")
		if showTokens {
			for j, id := range out.IDs {
				fmt.Fprintf(&sb, "  %s %s %s\n",
					st.id.Render(fmt.Sprintf("%7d", id)),
					st.token.Render(fmt.Sprintf("%-24q", out.Tokens[j])),
					st.dim.Render(fmt.Sprintf("[%d:%d]", out.Offsets[j][0], out.Offsets[j][1])))
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "failed to write output")
}
