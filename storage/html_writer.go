package storage

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"vinpipe/models"
)

// RenderHTML renders t as a single-table HTML document, header row first.
// The output reads back through reader.ParseHTMLTable.
func RenderHTML(t *models.Table, title string) ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	titleNode := element(atom.Title)
	titleNode.AppendChild(text(title))
	head.AppendChild(titleNode)
	root.AppendChild(head)

	body := element(atom.Body)
	table := element(atom.Table, html.Attribute{Key: "border", Val: "1"})

	headerRow := element(atom.Tr)
	for _, c := range t.Columns {
		th := element(atom.Th)
		th.AppendChild(text(c))
		headerRow.AppendChild(th)
	}
	table.AppendChild(headerRow)

	for _, rec := range t.Records() {
		tr := element(atom.Tr)
		for _, v := range rec {
			td := element(atom.Td)
			if v != "" {
				td.AppendChild(text(v))
			}
			tr.AppendChild(td)
		}
		table.AppendChild(tr)
	}

	body.AppendChild(table)
	root.AppendChild(body)
	doc.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("html: render: %w", err)
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
