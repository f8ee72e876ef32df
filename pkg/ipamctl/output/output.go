// Copyright 2019-2025 The Liqo Authors
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

package output

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/kubectl/pkg/cmd/util"
)

func init() {
	// Disable styling if we are not in a standard terminal, as control sequences would not work.
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		pterm.DisableStyling()
	}
}

const (
	levelMultiplier = 2

	// CheckMark is the unicode checkmark.
	CheckMark = "✔"
	// Cross is the unicode cross.
	Cross = "✖"
)

var (
	// SectionStyle is the style of the section titles.
	SectionStyle = pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	// DataStyle is the style of the highlighted data.
	DataStyle = pterm.NewStyle(pterm.FgLightYellow, pterm.Bold)
)

var spinnerCharset = []string{"⠈⠁", "⠈⠑", "⠈⠱", "⠈⡱", "⢀⡱", "⢄⡱", "⢄⡱", "⢆⡱", "⢎⡱", "⢎⡰", "⢎⡠", "⢎⡀", "⢎⠁", "⠎⠁", "⠊⠁"}

// Printer manages all kinds of outputs.
type Printer struct {
	Info    *pterm.PrefixPrinter
	Success *pterm.PrefixPrinter
	Warning *pterm.PrefixPrinter
	Error   *pterm.PrefixPrinter

	spinner    *pterm.SpinnerPrinter
	BulletList *pterm.BulletListPrinter
	Section    *pterm.SectionPrinter
	Table      *pterm.TablePrinter
	Tree       *pterm.TreePrinter

	// Out receives the command results, as opposed to the diagnostic messages.
	Out         io.Writer
	verbose     bool
	interactive bool
}

// BulletListAddItem adds a new message to the BulletListPrinter.
func (p *Printer) BulletListAddItem(msg string, level int) {
	p.BulletList.Items = append(p.BulletList.Items, pterm.BulletListItem{
		Text:  msg,
		Level: level * levelMultiplier,
	})
}

// BulletListSprint renders the pending items of the bullet list, and resets it.
func (p *Printer) BulletListSprint() (string, error) {
	defer func() { p.BulletList.Items = nil }()
	return p.BulletList.Srender()
}

// StartSpinner starts a new spinner.
func (p *Printer) StartSpinner(text ...interface{}) *pterm.SpinnerPrinter {
	spinner, err := p.spinner.Start(text...)
	utilruntime.Must(err)
	return spinner
}

// Spin starts a spinner if the messages are written to a terminal, and returns the function
// terminating the operation, which reports the success message unless an error occurred.
func (p *Printer) Spin(text string) func(success string, err error) {
	if !p.interactive {
		p.Verbosef("%s", text)
		return func(success string, err error) {
			if err == nil {
				p.Success.Println(success)
			}
		}
	}

	spinner := p.StartSpinner(text)
	return func(success string, err error) {
		if err != nil {
			spinner.Fail(text)
			return
		}
		spinner.Success(success)
	}
}

// Verbosef outputs verbose messages guarded by the corresponding flag.
func (p *Printer) Verbosef(format string, args ...interface{}) {
	if p.verbose {
		p.Info.Printfln(strings.TrimRight(format, "\n"), args...)
	}
}

// Println writes a result line to the output.
func (p *Printer) Println(text string) {
	_, _ = io.WriteString(p.Out, strings.TrimRight(text, "\n")+"\n")
}

// CheckErr prints a user friendly error and exits with a non-zero exit code.
// If a spinner is currently active, then it is leveraged to print the message,
// otherwise it outputs the message through the printer or, if nil, to STDERR.
func (p *Printer) CheckErr(err error) {
	switch {
	// Shortcircuit in case no error occurred.
	case err == nil:
		return

	// Print the error through the spinner, if specified.
	case p != nil && p.spinner.IsActive:
		util.BehaviorOnFatal(func(msg string, code int) {
			p.spinner.Fail(msg)
			os.Exit(code)
		})

	// Print the error through the printer, if initialized.
	case p != nil:
		util.BehaviorOnFatal(func(msg string, code int) {
			p.Error.Println(strings.TrimRight(msg, "\n"))
			os.Exit(code)
		})

	// Otherwise, restore the default behavior.
	default:
		util.DefaultBehaviorOnFatal()
	}

	util.CheckErr(err)
}

// PrettyErr returns a prettified error message, according to standard kubectl style.
func PrettyErr(err error) string {
	// Unwrap possible URL errors, returned by the cloud APIs.
	urlErr := &url.Error{}
	if errors.As(err, &urlErr) {
		err = urlErr
	}

	if msg, ok := util.StandardErrorMessage(err); ok {
		return msg
	}

	return strings.Replace(err.Error(), context.DeadlineExceeded.Error(), "timed out waiting for the address blocks", 1)
}

// ExitOnErr aborts the execution in case of errors, without printing any error message.
func ExitOnErr(err error) {
	if err != nil {
		os.Exit(util.DefaultErrorExitCode)
	}
}

// NewPrinter returns a new printer writing the results to stdout, and the messages to stderr.
func NewPrinter(verbose bool) *Printer {
	printer := newPrinter(os.Stdout, os.Stderr, verbose)
	printer.interactive = isatty.IsTerminal(os.Stderr.Fd())
	return printer
}

func newPrinter(out, messages io.Writer, verbose bool) *Printer {
	generic := &pterm.PrefixPrinter{MessageStyle: pterm.NewStyle(pterm.FgDefault), Writer: messages}

	printer := &Printer{
		Out:     out,
		verbose: verbose,
		Info: generic.WithPrefix(pterm.Prefix{
			Text:  "INFO",
			Style: pterm.NewStyle(pterm.FgDarkGray),
		}),

		Success: generic.WithPrefix(pterm.Prefix{
			Text:  "INFO",
			Style: pterm.NewStyle(pterm.FgGreen),
		}),

		Warning: generic.WithPrefix(pterm.Prefix{
			Text:  "WARN",
			Style: pterm.NewStyle(pterm.FgYellow),
		}),

		Error: generic.WithPrefix(pterm.Prefix{
			Text:  "ERRO",
			Style: pterm.NewStyle(pterm.FgRed),
		}),
	}

	printer.spinner = &pterm.SpinnerPrinter{
		Sequence:            spinnerCharset,
		Style:               pterm.NewStyle(pterm.FgLightBlue),
		Delay:               time.Millisecond * 100,
		MessageStyle:        pterm.NewStyle(pterm.FgLightBlue),
		SuccessPrinter:      printer.Success,
		WarningPrinter:      printer.Warning,
		FailPrinter:         printer.Error,
		RemoveWhenDone:      false,
		ShowTimer:           true,
		TimerRoundingFactor: time.Second,
		TimerStyle:          &pterm.ThemeDefault.TimerStyle,
		Writer:              messages,
	}

	printer.BulletList = &pterm.BulletListPrinter{Writer: out}
	printer.Section = &pterm.SectionPrinter{
		Style:  SectionStyle,
		Level:  1,
		Writer: out,
	}
	printer.Table = pterm.DefaultTable.WithHasHeader().WithWriter(out)
	printer.Tree = pterm.DefaultTree.WithWriter(out)

	return printer
}

// NewFakePrinter returns a new printer to be used in tests, writing everything to the given writer.
func NewFakePrinter(writer io.Writer) *Printer {
	return newPrinter(writer, writer, true)
}

// NewFakeSplitPrinter returns a new printer to be used in tests, writing the results and the messages apart.
func NewFakeSplitPrinter(out, messages io.Writer) *Printer {
	return newPrinter(out, messages, true)
}
