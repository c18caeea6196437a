package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yourusername/ballot/pkg/rpc"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// cropAddress shortens an address to 0x1234...abcd
func cropAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func voterTable(v *rpc.VoterResponse) string {
	return newTable("Field", "Value").
		Row("Address", v.Address).
		Row("Weight", strconv.FormatUint(v.Weight, 10)).
		Row("Voted", strconv.FormatBool(v.Voted)).
		Row("Delegate", v.Delegate).
		Row("Vote", strconv.FormatUint(v.Vote, 10)).
		Render()
}

func proposalsTable(proposals []rpc.ProposalResponse, winner uint64) string {
	t := newTable("#", "Proposal", "Votes", "")
	for _, p := range proposals {
		mark := ""
		if p.Index == winner {
			mark = "winning"
		}
		t.Row(strconv.FormatUint(p.Index, 10), p.Name, strconv.FormatUint(p.VoteCount, 10), mark)
	}
	return t.Render()
}

func votersTable(voters []rpc.VoterResponse) string {
	t := newTable("Address", "Weight", "Voted", "Delegate", "Vote")
	for _, v := range voters {
		t.Row(v.Address, strconv.FormatUint(v.Weight, 10), strconv.FormatBool(v.Voted), cropAddress(v.Delegate), strconv.FormatUint(v.Vote, 10))
	}
	return t.Render()
}

func historyTable(receipts []rpc.Receipt) string {
	t := newTable("Seq", "Operation", "Caller", "Status", "Detail")
	for _, r := range receipts {
		detail := r.Reason
		if r.Status == "success" {
			parts := make([]string, len(r.Changes))
			for i, c := range r.Changes {
				parts[i] = c.String()
			}
			detail = strings.Join(parts, ", ")
		}
		t.Row(strconv.FormatUint(r.Sequence, 10), r.Operation, cropAddress(r.Caller), r.Status, detail)
	}
	return t.Render()
}

// confirm asks a yes/no question on in. Anything but "n" proceeds.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(out, "%s (Y/n) ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(line)) != "n"
}
