package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/teranos/annogen/entity"
)

// CurrentFileIDMacro is redefined by every generated header so the body
// macro of a record can be named after the file and line it appears on.
const CurrentFileIDMacro = "CURRENT_FILE_ID"

func banner(source string) string {
	return fmt.Sprintf("// Generated by annogen from %s. Do not edit.\n\n#pragma once\n", filepath.Base(source))
}

func composeHeader(s Settings, model *entity.Model, acc *accumulators) string {
	var b strings.Builder
	b.WriteString(banner(model.File))

	if acc.prologue.Len() > 0 {
		b.WriteString("\n")
		writeBlock(&b, acc.prologue.String())
	}

	fmt.Fprintf(&b, "\n#ifdef %s\n\t#undef %s\n#endif\n#define %s %s\n",
		CurrentFileIDMacro, CurrentFileIDMacro, CurrentFileIDMacro, model.FileID)

	model.Walk(func(h entity.Handle, depth int) bool {
		e := model.Get(h)
		if !e.Kind.IsRecord() || e.Name == s.MarkerName {
			return true
		}
		footer, hasFooter := acc.footers[h]
		line, hasMarker := model.LookupMarker(h, s.MarkerName)
		if !hasFooter && !hasMarker {
			return true
		}

		macro := s.ClassFooterMacro(model.FullName(h))
		body := ""
		if hasFooter {
			body = footer.String()
		}
		b.WriteString("\n")
		writeMacro(&b, macro, body)
		if hasMarker {
			fmt.Fprintf(&b, "\n#define %s_%d_GENERATED_BODY %s\n", model.FileID, line, macro)
		}
		return true
	})

	b.WriteString("\n")
	writeMacro(&b, s.HeaderFooterMacro(model.File), acc.epilogue.String())
	return b.String()
}

func composeSource(model *entity.Model, acc *accumulators) string {
	var b strings.Builder
	b.WriteString(banner(model.File))
	if acc.source.Len() > 0 {
		b.WriteString("\n")
		writeBlock(&b, acc.source.String())
	}
	return b.String()
}

func writeBlock(b *strings.Builder, text string) {
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
}

// writeMacro defines name with body spread over continuation lines. Blank
// lines are dropped since they would end the macro.
func writeMacro(b *strings.Builder, name, body string) {
	var lines []string
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimRight(l, " \t\\")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	b.WriteString("#define " + name)
	for _, l := range lines {
		b.WriteString(" \\\n\t" + l)
	}
	b.WriteString("\n")
}

// EntityMacros returns the content of the header defining every annotation
// macro as empty for regular compilation, plus the body macro expanding to
// the per-line macro defined in generated headers.
func EntityMacros(annotationMacros []string, bodyMacro string) string {
	var b strings.Builder
	b.WriteString("// Generated by annogen. Do not edit.\n\n#pragma once\n\n#ifndef CODEGEN_BUILD\n")
	for _, m := range annotationMacros {
		fmt.Fprintf(&b, "#define %s(...)\n", m)
	}
	b.WriteString("#endif\n\n")
	b.WriteString("#define ANNOGEN_COMBINE_INNER(A, B, C, D) A##B##C##D\n")
	b.WriteString("#define ANNOGEN_COMBINE(A, B, C, D) ANNOGEN_COMBINE_INNER(A, B, C, D)\n\n")
	b.WriteString("#ifndef CODEGEN_BUILD\n")
	fmt.Fprintf(&b, "#define %s() ANNOGEN_COMBINE(%s, _, __LINE__, _GENERATED_BODY)\n", bodyMacro, CurrentFileIDMacro)
	b.WriteString("#endif\n")
	return b.String()
}
