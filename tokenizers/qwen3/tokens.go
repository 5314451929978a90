package qwen3

import "github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"

// Pattern is the pre-tokenizer regular expression of Qwen2 and Qwen3 models. Unlike GPT-2, digits
// are split one by one, letters absorb one leading non-letter, and line breaks are kept apart.
const Pattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

// DefaultModel is the HuggingFace model used when none is given.
const DefaultModel = "Qwen/Qwen3-0.6B"

// Ids of the added tokens of Qwen3. They follow the 151643 tokens of the base vocabulary.
const (
	EndOfTextTokenID = 151643 + iota
	ImStartTokenID
	ImEndTokenID
	ObjectRefStartTokenID
	ObjectRefEndTokenID
	BoxStartTokenID
	BoxEndTokenID
	QuadStartTokenID
	QuadEndTokenID
	VisionStartTokenID
	VisionEndTokenID
	VisionPadTokenID
	ImagePadTokenID
	VideoPadTokenID
	ToolCallTokenID
	ToolCallEndTokenID
	FimPrefixTokenID
	FimMiddleTokenID
	FimSuffixTokenID
	FimPadTokenID
	RepoNameTokenID
	FileSepTokenID
	ToolResponseTokenID
	ToolResponseEndTokenID
	ThinkTokenID
	ThinkEndTokenID
)

// Contents of the most used added tokens.
const (
	EndOfText = "<|endoftext|>"
	ImStart   = "<|im_start|>"
	ImEnd     = "<|im_end|>"
	Think     = "<think>"
	ThinkEnd  = "</think>"
)

// addedTokenContents indexed by id - EndOfTextTokenID.
var addedTokenContents = [...]string{
	EndOfText,
	ImStart,
	ImEnd,
	"<|object_ref_start|>",
	"<|object_ref_end|>",
	"<|box_start|>",
	"<|box_end|>",
	"<|quad_start|>",
	"<|quad_end|>",
	"<|vision_start|>",
	"<|vision_end|>",
	"<|vision_pad|>",
	"<|image_pad|>",
	"<|video_pad|>",
	"<tool_call>",
	"</tool_call>",
	"<|fim_prefix|>",
	"<|fim_middle|>",
	"<|fim_suffix|>",
	"<|fim_pad|>",
	"<|repo_name|>",
	"<|file_sep|>",
	"<tool_response>",
	"</tool_response>",
	Think,
	ThinkEnd,
}

// AddedTokens returns the 26 added tokens of Qwen3, sorted by id. The first 14, up to
// <|video_pad|>, are special: the tool, fill-in-the-middle and thinking markers are not.
func AddedTokens() []bpe.AddedToken {
	tokens := make([]bpe.AddedToken, len(addedTokenContents))
	for i, content := range addedTokenContents {
		id := EndOfTextTokenID + i
		tokens[i] = bpe.AddedToken{Content: content, ID: id, Special: id <= VideoPadTokenID}
	}
	return tokens
}

// SpecialTokens returns the 14 special added tokens of Qwen3, the only ones known to the
// embedding models.
func SpecialTokens() []bpe.AddedToken {
	return AddedTokens()[:VideoPadTokenID-EndOfTextTokenID+1]
}
