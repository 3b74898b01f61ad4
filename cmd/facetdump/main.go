// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command facetdump inspects a registered Shape's compiled TypePlan, the
// same archetype-cache artifact hyperpb's own disassembly tooling dumps
// for a compiled message descriptor, but for facet's generic shape
// graph instead of a protobuf descriptor.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"facet"
	"facet/plan"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "facetdump",
		Short: "Inspect facet shapes and compiled type plans",
	}
	root.AddCommand(newShapesCmd())
	return root
}

func newShapesCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "shapes",
		Short: "List every registered shape and its compiled plan node graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			shapes := facet.RegisteredShapes()
			if len(shapes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no shapes registered in this process")
				return nil
			}
			for _, s := range shapes {
				printShape(cmd.OutOrStdout(), s, verbose)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print each shape's compiled plan node graph")
	return cmd
}

func printShape(out io.Writer, s *facet.Shape, verbose bool) {
	fmt.Fprintf(out, "%s  type=%s  size=%d  align=%d\n", s.ID, s.Type, s.Size, s.Align)
	if !verbose {
		return
	}
	tp := plan.For(s)
	printNode(out, tp.Root, 1, map[*plan.Node]bool{})
}

// printNode walks the compiled node graph depth-first, guarding against
// cycles (shapes can be self-referential, e.g. a tree node type) with a
// seen-set rather than a depth cap.
func printNode(out io.Writer, n *plan.Node, depth int, seen map[*plan.Node]bool) {
	if n == nil || seen[n] {
		return
	}
	seen[n] = true
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	recursive := ""
	if n.Recursive {
		recursive = "  recursive=true"
	}
	fmt.Fprintf(out, "%s%s strategy=%s%s\n", indent, n.Shape.ID, strategyName(n.Strategy), recursive)
	for key, child := range n.Schema {
		fmt.Fprintf(out, "%s  field %s:\n", indent, key.Name)
		printNode(out, child, depth+2, seen)
	}
}

func strategyName(s plan.Strategy) string {
	switch s {
	case plan.Direct:
		return "direct"
	case plan.ContainerProxy:
		return "container_proxy"
	case plan.FieldProxy:
		return "field_proxy"
	case plan.Flatten:
		return "flatten"
	case plan.Transparent:
		return "transparent"
	default:
		return "unknown"
	}
}
