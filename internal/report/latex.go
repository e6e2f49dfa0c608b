package report

import (
	"fmt"
	"io"
	"strings"
)

// Element is a piece of a LaTeX document
type Element interface {
	Write(w io.Writer) error
}

// Directive renders as \name[opt]...{arg}... followed by a space
type Directive struct {
	Name string
	Opts []string
	Args []string
}

func (d Directive) Write(w io.Writer) error {
	var b strings.Builder
	b.WriteByte('\\')
	b.WriteString(d.Name)
	for _, o := range d.Opts {
		b.WriteByte('[')
		b.WriteString(o)
		b.WriteByte(']')
	}
	for _, a := range d.Args {
		b.WriteByte('{')
		b.WriteString(a)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	_, err := io.WriteString(w, b.String())
	return err
}

// Environment renders as \begin{name} <elements>\end{name} followed by a space
type Environment struct {
	Name     string
	Elements []Element
}

func (e Environment) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "\\begin{%s} ", e.Name); err != nil {
		return err
	}
	for _, el := range e.Elements {
		if err := el.Write(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\\end{%s} ", e.Name)
	return err
}

// Raw is text surrounded by single spaces
type Raw string

func (r Raw) Write(w io.Writer) error {
	_, err := io.WriteString(w, " "+string(r)+" ")
	return err
}

// Section starts a numbered section
func Section(title string) Directive {
	return Directive{Name: "section", Args: []string{title}}
}

// Subsection starts a numbered subsection
func Subsection(title string) Directive {
	return Directive{Name: "subsection", Args: []string{title}}
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
)

// Escape quotes LaTeX special characters in plain text
func Escape(s string) string {
	return latexEscaper.Replace(s)
}
