package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/modelinputs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

type prepareOutput struct {
	InputIDs        [][]int64 `json:"input_ids"`
	AttentionMask   [][]int64 `json:"attention_mask"`
	PositionIDs     [][]int64 `json:"position_ids"`
	SequenceLengths []int     `json:"sequence_lengths"`
}

func newPrepareCmd() *cobra.Command {
	var (
		in        inputFlags
		maxLength int
		output    string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "prepare [text...]",
		Short: "Prepare fixed-length model inputs (input ids, attention mask, position ids)",
		Long: "Prepare fixed-length model inputs: each text is encoded with the end-of-sequence token, " +
			"truncated or padded to --max-length. With --output the batch is saved as Int64 tensors " +
			"of shape [batch, max-length] in a safetensors file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if maxLength <= 0 {
				return errors.Errorf("--max-length must be positive, got %d", maxLength)
			}
			texts, err := in.texts(cmd, args)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return errors.New("no texts to prepare")
			}
			tok, description, err := loadTokenizer(cmd.Context(), activeCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			batch, err := tok.PrepareBatch(texts, maxLength)
			if err != nil {
				return err
			}

			if output != "" {
				inputs, err := modelinputs.FromBatch(batch)
				if err != nil {
					return err
				}
				metadata := map[string]string{
					"tokenizer":  description,
					"max_length": strconv.Itoa(maxLength),
					"pad_id":     strconv.Itoa(tok.PadTokenID()),
				}
				if err := modelinputs.SaveSafetensors(output, inputs.Named(), metadata); err != nil {
					return err
				}
				klog.V(1).Infof("saved inputs of %d texts to %s", batch.BatchSize(), output)
				return nil
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), prepareOutput{
					InputIDs:        batch.InputIDs,
					AttentionMask:   batch.AttentionMask,
					PositionIDs:     batch.PositionIDs,
					SequenceLengths: batch.SequenceLengths,
				})
			}

			st := newStyles(cmd.OutOrStdout())
			var sb strings.Builder
			for i := range batch.BatchSize() {
				if i > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(st.title.Render(strconv.Quote(shorten(texts[i], 60))))
				fmt.Fprintf(&sb, " %s\n", st.dim.Render(fmt.Sprintf("(%d tokens)", batch.SequenceLengths[i])))
				for _, row := range []struct {
					name   string
					values []int64
				}{
					{modelinputs.InputIDsName, batch.InputIDs[i]},
					{modelinputs.AttentionMaskName, batch.AttentionMask[i]},
					{modelinputs.PositionIDsName, batch.PositionIDs[i]},
				} {
					fmt.Fprintf(&sb, "  %-15s %s\n", row.name, st.id.Render(joinInts(row.values)))
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sb.String())
			return errors.Wrap(err, "failed to write output")
		},
	}
	in.register(cmd)
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Length of the prepared inputs (required)")
	cmd.Flags().StringVar(&output, "output", "", "Save the inputs to this safetensors file")
	addFormatFlag(cmd, &format)
	return cmd
}

func joinInts(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}
