package lspservice

import (
	"context"

	"github.com/ggoodman/zoof-lsp/lsp"
)

// Keywords are the language keywords offered by completion.
var Keywords = []string{
	"print", "import", "from", "as",
	"abstract", "trait", "struct", "impl",
	"func", "proc", "getter", "setter", "method", "return",
	"if", "elif", "elseif", "else", "then",
	"for", "in", "while", "do", "its",
	"break", "continue",
}

// KeywordDetail is the detail text shown next to every keyword item.
const KeywordDetail = "extra details"

// KeywordCompletions builds the completion list for the built-in keywords
// followed by extra, skipping duplicates.
func KeywordCompletions(extra []string) lsp.CompletionList {
	seen := make(map[string]bool, len(Keywords)+len(extra))
	items := make([]lsp.CompletionItem, 0, len(Keywords)+len(extra))
	for _, kw := range append(append([]string(nil), Keywords...), extra...) {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		items = append(items, lsp.CompletionItem{Label: kw, Kind: lsp.CompletionItemKindKeyword, Detail: KeywordDetail})
	}
	return lsp.CompletionList{IsIncomplete: false, Items: items}
}

func handleCompletion(ctx context.Context, st *State, _ lsp.CompletionParams) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return KeywordCompletions(st.ExtraKeywords()), nil
}
