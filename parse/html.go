package parse

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTML extracts the rows of every <table> into documents: the first row
// supplies column names, each following row becomes one document. Pages
// without tables yield no documents.
func HTML(data []byte) ([]any, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var docs []any

	for _, table := range findAll(root, "table") {
		rows := findAll(table, "tr")
		if len(rows) < 2 {
			continue
		}

		header := cellTexts(rows[0])

		for _, row := range rows[1:] {
			cells := cellTexts(row)
			doc := make(map[string]any, len(header))

			for i, cell := range cells {
				if i >= len(header) {
					break
				}

				doc[header[i]] = cell
			}

			if len(doc) > 0 {
				docs = append(docs, doc)
			}
		}
	}

	return docs, nil
}

// findAll returns all descendant elements with the given tag, in document
// order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)

			continue
		}

		out = append(out, findAll(c, tag)...)
	}

	return out
}

// cellTexts returns the trimmed text of each th or td cell in a row.
func cellTexts(row *html.Node) []string {
	var out []string

	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}

		if c.Data != "th" && c.Data != "td" {
			continue
		}

		out = append(out, strings.TrimSpace(text(c)))
	}

	return out
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var sb strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(text(c))
	}

	return sb.String()
}
