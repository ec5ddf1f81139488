package vtu

import (
	"bytes"
	"encoding/xml"
	"io"
)

// xmlNode is a generic element: tag, attributes, text and child elements.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Comment  string     `xml:",comment"`
	Text     string     `xml:",chardata"`
	Children []*xmlNode `xml:",any"`
}

func newNode(tag string, attrs ...string) *xmlNode {
	n := &xmlNode{XMLName: xml.Name{Local: tag}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.setAttr(attrs[i], attrs[i+1])
	}
	return n
}

func (n *xmlNode) tag() string { return n.XMLName.Local }

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) setAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name.Local == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (n *xmlNode) removeAttr(name string) {
	out := n.Attrs[:0]
	for _, a := range n.Attrs {
		if a.Name.Local != name {
			out = append(out, a)
		}
	}
	n.Attrs = out
}

func (n *xmlNode) add(child *xmlNode) *xmlNode {
	n.Children = append(n.Children, child)
	return child
}

// walk calls fn for n and every descendant, depth first.
func (n *xmlNode) walk(fn func(*xmlNode)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// parseXML strictly parses one document into a tree.
func parseXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// writeXML serializes root with an XML declaration.
func writeXML(w io.Writer, root *xmlNode) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
