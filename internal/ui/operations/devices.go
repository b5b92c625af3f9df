package operations

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nickpending/devicelab/internal/api"
)

// DevicesLoadedMsg carries one device list fetch. Seq is the request
// sequence number the page handed out; the page drops responses older
// than the last one it applied.
type DevicesLoadedMsg struct {
	Seq     int
	Devices []api.Device
	Err     error
	Auto    bool // Triggered by the refresh timer
}

// FetchDevices fetches the device status list
func FetchDevices(client *api.APIClient, seq int, auto bool) tea.Cmd {
	return func() tea.Msg {
		devices, err := client.Devices(context.Background())
		return DevicesLoadedMsg{
			Seq:     seq,
			Devices: devices,
			Err:     err,
			Auto:    auto,
		}
	}
}
