package main

import (
	"fmt"
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type infoOutput struct {
	Source         string           `json:"source"`
	VocabularySize int              `json:"vocabulary_size"`
	EOSTokenID     int              `json:"eos_token_id"`
	PadTokenID     int              `json:"pad_token_id"`
	AddedTokens    []bpe.AddedToken `json:"added_tokens"`
}

func newInfoCmd() *cobra.Command {
	var (
		showAdded bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the vocabulary size, special token ids and added tokens of the tokenizer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			tok, description, err := loadTokenizer(cmd.Context(), activeCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := infoOutput{
				Source:         description,
				VocabularySize: tok.VocabularySize(),
				EOSTokenID:     tok.EOSTokenID(),
				PadTokenID:     tok.PadTokenID(),
				AddedTokens:    tok.AddedTokens(),
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			tokenName := func(id int) string {
				token, _ := tok.IDToToken(id)
				return st.dim.Render(fmt.Sprintf("%q", token))
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "%s %s\n", st.title.Render("source:"), out.Source)
			fmt.Fprintf(&sb, "%s %d\n", st.title.Render("vocabulary size:"), out.VocabularySize)
			fmt.Fprintf(&sb, "%s %d %s\n", st.title.Render("eos token:"), out.EOSTokenID, tokenName(out.EOSTokenID))
			fmt.Fprintf(&sb, "%s %d %s\n", st.title.Render("pad token:"), out.PadTokenID, tokenName(out.PadTokenID))
			fmt.Fprintf(&sb, "%s %d (%d special)\n", st.title.Render("added tokens:"),
				len(out.AddedTokens), len(tok.SpecialTokenIDs()))
			if showAdded {
				for _, token := range out.AddedTokens {
					style := st.token
					if token.Special {
						style = st.special
					}
					fmt.Fprintf(&sb, "  %7d %s\n", token.ID, style.Render(token.Content))
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sb.String())
			return errors.Wrap(err, "failed to write output")
		},
	}
	cmd.Flags().BoolVar(&showAdded, "added", false, "List the added tokens")
	addFormatFlag(cmd, &format)
	return cmd
}
