package bplustree

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"
)

// WriteDOT renders the tree as a Graphviz digraph: inner nodes with one port
// per child, leaves with their keys and fill, and the leaf chain as dashed
// edges. Keys are formatted with fmt.
func (t *Tree[K, V]) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph BPlusTree {")
	fmt.Fprintln(bw, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(bw, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw, "  edge [arrowsize=0.8, color=\"#444444\"];")

	names := make(map[*leafNode[K, V]]string)
	var counter int

	var export func(n node[K, V]) string
	export = func(n node[K, V]) string {
		name := fmt.Sprintf("node%d", counter)
		counter++

		switch x := n.(type) {
		case *leafNode[K, V]:
			fill := 100 * float64(x.count) / float64(t.opts.LeafSlots)
			var label strings.Builder
			fmt.Fprintf(&label, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
				`<TR><TD COLSPAN="2" BGCOLOR="#D5E8D4"><B>LEAF</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>`+
				`<TR><TD PORT="keys" BGCOLOR="#F5F5F5" ALIGN="LEFT">`, fill)
			for i := 0; i < x.count; i++ {
				fmt.Fprintf(&label, "<B>%s</B><BR/>", html.EscapeString(fmt.Sprint(x.keys[i])))
			}
			label.WriteString(`</TD><TD PORT="next" BGCOLOR="#E1F5FE" VALIGN="MIDDLE">next</TD></TR></TABLE>>`)
			fmt.Fprintf(bw, "  %s [label=%s];\n", name, label.String())
			names[x] = name

		case *innerNode[K, V]:
			var label strings.Builder
			fmt.Fprintf(&label, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
				`<TR><TD COLSPAN="%d" BGCOLOR="#DAE8FC"><B>INNER L%d</B><BR/><FONT POINT-SIZE="8">%d/%d keys</FONT></TD></TR><TR>`,
				x.count*2+1, x.lvl, x.count, t.opts.InnerSlots)
			for i := 0; i < x.count; i++ {
				fmt.Fprintf(&label, `<TD PORT="f%d" BGCOLOR="#E1F5FE"> </TD><TD BGCOLOR="#FFFFFF"><B>%s</B></TD>`,
					i, html.EscapeString(fmt.Sprint(x.keys[i])))
			}
			fmt.Fprintf(&label, `<TD PORT="f%d" BGCOLOR="#E1F5FE"> </TD></TR></TABLE>>`, x.count)
			fmt.Fprintf(bw, "  %s [label=%s];\n", name, label.String())

			for i := 0; i <= x.count; i++ {
				child := export(x.children[i])
				fmt.Fprintf(bw, "  %s:f%d -> %s;\n", name, i, child)
			}
		}
		return name
	}

	if t.root != nil {
		export(t.root)
	}

	if t.leaves > 1 {
		fmt.Fprintln(bw, "  { rank=same;")
		for leaf := t.head; leaf != nil; leaf = leaf.next {
			fmt.Fprintf(bw, "    %s;\n", names[leaf])
		}
		fmt.Fprintln(bw, "  }")
		for leaf := t.head; leaf.next != nil; leaf = leaf.next {
			fmt.Fprintf(bw, "  %s:next -> %s [style=dashed, color=\"#03A9F4\", constraint=false, tailclip=false];\n",
				names[leaf], names[leaf.next])
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
