package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/manager"
	"github.com/teranos/annogen/parser"
	"github.com/teranos/annogen/parser/cpp"
)

// EntitiesCmd dumps the entity model of one header
var EntitiesCmd = &cobra.Command{
	Use:   "entities <header>",
	Short: "Print the entity model parsed from a header",
	Long: `Parse one header and print its entities with their annotations, types and
body marker lines. Nothing is generated.

Examples:
  annogen entities Light.hpp
  annogen entities Light.hpp --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runEntities,
}

var entitiesFormat string

func init() {
	EntitiesCmd.Flags().StringVar(&entitiesFormat, "format", "tree", "Output format: tree, yaml, json")
}

// entityDump is the YAML and JSON shape of a parsed file.
type entityDump struct {
	File        string        `json:"file" yaml:"file"`
	FileID      string        `json:"file_id" yaml:"file_id"`
	Entities    []entity.Node `json:"entities" yaml:"entities"`
	Diagnostics []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func runEntities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fe, err := cpp.New(frontendOptions(cfg), logger.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	opts := manager.OptionsFromConfig(cfg)
	res := parser.New(fe, opts.Parser, logger.Logger).Parse(ctx, args[0])
	if !res.Success {
		for _, d := range res.Diagnostics {
			pterm.Error.Println(d.Error())
		}
		return errors.Newf("failed to parse %s", args[0])
	}
	resolveMarkers(res.Model, cfg.Generation.MarkerName)
	return printEntities(cmd.OutOrStdout(), res, entitiesFormat)
}

// resolveMarkers records the body marker line of every record that has one.
func resolveMarkers(model *entity.Model, marker string) {
	model.Walk(func(h entity.Handle, _ int) bool {
		e := model.Get(h)
		if e.Record != nil {
			if line, ok := model.LookupMarker(h, marker); ok {
				e.Record.MarkerLine = line
			}
		}
		return true
	})
}

func printEntities(w io.Writer, res parser.Result, format string) error {
	dump := entityDump{
		File:     res.File,
		FileID:   res.Model.FileID,
		Entities: res.Model.Tree(),
	}
	for _, d := range res.Diagnostics {
		dump.Diagnostics = append(dump.Diagnostics, d.Error())
	}

	switch format {
	case "tree", "":
		for _, d := range dump.Diagnostics {
			pterm.Warning.Println(d)
		}
		root := pterm.TreeNode{
			Text:     fmt.Sprintf("%s (%s)", pterm.Bold.Sprint(res.File), res.Model.FileID),
			Children: entityTree(dump.Entities),
		}
		out, err := pterm.DefaultTree.WithRoot(root).Srender()
		if err != nil {
			return errors.Wrap(err, "failed to render tree")
		}
		_, err = io.WriteString(w, out)
		return err
	case am.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(dump); err != nil {
			return errors.Wrap(err, "failed to encode yaml")
		}
		return enc.Close()
	case am.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(dump), "failed to encode json")
	default:
		return errors.WithHint(errors.Newf("unknown format %q", format), "use tree, yaml or json")
	}
}

// entityTree converts nodes into pterm tree nodes.
func entityTree(nodes []entity.Node) []pterm.TreeNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pterm.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, pterm.TreeNode{Text: entityLabel(n), Children: entityTree(n.Children)})
	}
	return out
}

// entityLabel describes one entity on a single line.
func entityLabel(n entity.Node) string {
	var b strings.Builder
	b.WriteString(pterm.LightCyan(n.Kind.String()))
	b.WriteByte(' ')
	b.WriteString(n.Name)

	switch {
	case n.Field != nil:
		fmt.Fprintf(&b, " : %s", n.Field.Type.Name)
		if n.Field.Static {
			b.WriteString(" static")
		}
	case n.Function != nil:
		fmt.Fprintf(&b, " -> %s", n.Function.ReturnType.Name)
	case n.Enum != nil && n.Enum.UnderlyingType != "":
		fmt.Fprintf(&b, " : %s", n.Enum.UnderlyingType)
	case n.EnumValue != nil && n.EnumValue.Default != "":
		fmt.Fprintf(&b, " = %s", n.EnumValue.Default)
	}

	if len(n.Properties) > 0 {
		props := make([]string, len(n.Properties))
		for i, p := range n.Properties {
			props[i] = p.String()
		}
		b.WriteByte(' ')
		b.WriteString(pterm.Green("(" + strings.Join(props, ", ") + ")"))
	}
	if n.Record != nil && n.Record.MarkerLine != entity.NoMarkerLine {
		fmt.Fprintf(&b, " body@%d", n.Record.MarkerLine)
	}
	b.WriteString(pterm.Gray(fmt.Sprintf(" line %d", n.Line)))
	return b.String()
}
