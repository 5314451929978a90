package main

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var skipSpecial, strict bool
	cmd := &cobra.Command{
		Use:   "decode [id...]",
		Short: "Decode token ids to text",
		Long: "Decode token ids to text. The ids are the arguments, or read from stdin, separated by spaces, " +
			"commas or brackets (so a JSON list works).",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				contents, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read ids from stdin")
				}
				input = string(contents)
			}
			ids, err := parseIDs(input)
			if err != nil {
				return err
			}
			tok, _, err := loadTokenizer(cmd.Context(), activeCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var text string
			if strict {
				text, err = tok.DecodeStrict(ids, skipSpecial)
				if err != nil {
					return err
				}
			} else {
				text = tok.Decode(ids, skipSpecial)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text+"\n")
			return errors.Wrap(err, "failed to write output")
		},
	}
	cmd.Flags().BoolVar(&skipSpecial, "skip-special", false, "Omit special tokens from the text")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on ids unknown to the tokenizer, instead of skipping them")
	return cmd
}

// parseIDs parses a list of non-negative ids separated by spaces, commas or brackets.
func parseIDs(input string) ([]int, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '[' || r == ']'
	})
	ids := make([]int, len(fields))
	for i, field := range fields {
		id, err := strconv.Atoi(field)
		if err != nil || id < 0 {
			return nil, errors.Errorf("invalid token id %q", field)
		}
		ids[i] = id
	}
	return ids, nil
}
