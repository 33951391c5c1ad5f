//    Copyright 2024 FieldNet authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	humanize "github.com/dustin/go-humanize"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/pins"
)

// Status is the part of the node service the dashboard renders.
type Status interface {
	// NodeID returns the identifier of this node.
	NodeID() string
	// StartedAt returns the boot time of the service.
	StartedAt() time.Time
	// EngineState returns the current transaction engine state.
	EngineState() string
	// Inconsistent returns true when the pin/sensor state is untrusted.
	Inconsistent() bool
	// CapabilitiesSnapshot reports free pins, active sensors and reserved pins.
	CapabilitiesSnapshot() model.Capabilities
	// LastConflict returns the most recent denied claim.
	LastConflict() (pins.Conflict, bool)
}

// UI builds dashboard models for incoming SSH sessions.
type UI struct {
	status Status
}

// New creates a UI serving the given status provider.
func New(status Status) *UI {
	return &UI{status: status}
}

// Handler creates a Bubble Tea model for the given SSH session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	r := Root{
		status: u.status,
		term:   pty.Term,
		width:  pty.Window.Width,
		height: pty.Window.Height,
	}
	return r, []tea.ProgramOption{tea.WithAltScreen()}
}

var (
	faultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type Root struct {
	status  Status
	term    string
	width   int
	height  int
	loadAvg string

	showFile struct {
		active   bool
		viewPort viewport.Model
	}
}

var _ tea.Model = Root{}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return doReloadCPULoadAvg()
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "k":
			r = r.openFile("/proc/kmsg")
		case "m":
			r = r.openFile("/proc/meminfo")
		case "esc":
			r.showFile.active = false
		case "r":
			os.Exit(0)
		}
	}

	// Handle keyboard and mouse events in the viewport
	if r.showFile.active {
		var cmd tea.Cmd
		r.showFile.viewPort, cmd = r.showFile.viewPort.Update(msg)
		cmds = append(cmds, cmd)
	}

	return r, tea.Batch(cmds...)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	s := r.headerView()
	if r.showFile.active {
		return s + r.showFile.viewPort.View()
	}
	s += r.statusView()
	s += dimStyle.Render(`k - View /proc/kmsg
m - View /proc/meminfo
r - Reboot
q - Disconnect
`)
	return s
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("FieldNet node "+r.status.NodeID()),
		"  ",
		r.loadAvg,
	) + "\n"
}

func (r Root) statusView() string {
	caps := r.status.CapabilitiesSnapshot()
	state := r.status.EngineState()
	if r.status.Inconsistent() {
		state = faultStyle.Render("INCONSISTENT")
	}
	s := fmt.Sprintf("Board:   %s\n", caps.Board)
	s += fmt.Sprintf("Up:      %s\n", humanize.Time(r.status.StartedAt()))
	s += fmt.Sprintf("Engine:  %s\n", state)
	s += fmt.Sprintf("Sensors: %d/%d active, %d pins free\n",
		len(caps.ActiveSensors), caps.SensorCapacity, len(caps.FreePins))
	for _, sensor := range caps.ActiveSensors {
		line := fmt.Sprintf("  %-16s %-12s pin %-3d %.2f\n",
			sensor.Name, sensor.Kind, sensor.Pin, sensor.Value)
		if !sensor.Ready {
			line = faultStyle.Render(line)
		}
		s += line
	}
	if conflict, found := r.status.LastConflict(); found {
		s += fmt.Sprintf("Last conflict: pin %d (%s) wanted by %q, owned by %q\n",
			conflict.Pin, conflict.Reason, conflict.RequestedOwner, conflict.CurrentOwner)
	}
	return s + "\n"
}

func (r Root) openFile(path string) Root {
	headerHeight := lipgloss.Height(r.headerView())

	content, _ := os.ReadFile(path)
	r.showFile.viewPort = viewport.New(r.width, r.height-headerHeight)
	r.showFile.viewPort.YPosition = headerHeight
	r.showFile.viewPort.SetContent(string(content))
	r.showFile.active = true

	return r
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		if content, err := os.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg(err.Error())
		} else {
			return loadAvgMsg(string(content))
		}
	})
}
