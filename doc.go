// Package motorpanel provides a terminal control panel for rotary motors
// exposed through a rosbridge-style websocket gateway.
//
// The panel connects to a bridge endpoint, discovers the available motors,
// and renders one panel per motor with a rotary gauge, a slider and preset
// buttons. Targets are commanded over the bridge's motor services; current
// positions are refreshed by a one-second poll.
//
// # Installation
//
//	go install github.com/JordanPalafox/motorpanel/cmd/motorpanel@latest
//
// # Usage
//
// First, point the panel at a bridge and choose which motors to show:
//
//	motorpanel setup
//
// Then open the panel:
//
//	motorpanel panel
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/motorpanel: CLI with setup and panel commands
//   - pkg/bridge: websocket bridge client and motor service calls
//   - pkg/panel: view state, interaction and rendering
//   - pkg/units: degree/radian conversion
//   - pkg/config: endpoint and motor selection configuration
package motorpanel
