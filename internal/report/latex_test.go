package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, e Element) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, e.Write(&b))
	return b.String()
}

func TestDirective(t *testing.T) {
	assert.Equal(t, `\maketitle `, render(t, Directive{Name: "maketitle"}))
	assert.Equal(t, `\usepackage[utf8]{inputenc} `,
		render(t, Directive{Name: "usepackage", Opts: []string{"utf8"}, Args: []string{"inputenc"}}))
	assert.Equal(t, `\section{Sensor Data} `, render(t, Section("Sensor Data")))
	assert.Equal(t, `\subsection{imu} `, render(t, Subsection("imu")))
}

func TestEnvironment(t *testing.T) {
	env := Environment{
		Name:     "document",
		Elements: []Element{Section("A"), Raw("hello")},
	}
	assert.Equal(t, `\begin{document} \section{A}  hello \end{document} `, render(t, env))
	assert.Equal(t, `\begin{itemize} \end{itemize} `, render(t, Environment{Name: "itemize"}))
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"imu_x", `imu\_x`},
		{"50% & $5", `50\% \& \$5`},
		{"#1 {a}", `\#1 \{a\}`},
		{`a\b`, `a\textbackslash{}b`},
		{"x^2 ~y", `x\textasciicircum{}2 \textasciitilde{}y`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), tt.in)
	}
}
