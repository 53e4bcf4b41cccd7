// Package pipewire captures the display through the XDG desktop portal
// and a PipeWire GStreamer pipeline. This is the primary backend on
// Wayland sessions.
package pipewire

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// Portal drives the org.freedesktop.portal.ScreenCast handshake over
// the session bus.
type Portal struct {
	conn          *dbus.Conn
	sessionHandle dbus.ObjectPath
	nodeID        uint32
	pipewireFD    int
	mu            sync.Mutex
	restoreToken  string
	tokenPath     string
}

const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenCastIface = "org.freedesktop.portal.ScreenCast"
	requestIface    = "org.freedesktop.portal.Request"
)

// Source types for SelectSources.
const (
	SourceTypeMonitor = 1 << 0
	SourceTypeWindow  = 1 << 1
	SourceTypeVirtual = 1 << 2
)

// Cursor modes for SelectSources. Metadata gives per-frame pointer
// structures, Embedded paints the cursor into the pixels; we ask for
// both so the cursor aggregator has its best source available.
const (
	CursorModeHidden   = 1 << 0
	CursorModeEmbedded = 1 << 1
	CursorModeMetadata = 1 << 2
)

// Persist modes for SelectSources.
const (
	PersistModeNone        = 0
	PersistModeApplication = 1
	PersistModeSession     = 2
)

// NewPortal connects to the session bus. tokenDir is where the restore
// token lives between runs, normally the config directory.
func NewPortal(tokenDir string) (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	p := &Portal{
		conn:       conn,
		pipewireFD: -1,
		tokenPath:  filepath.Join(tokenDir, "restore_token.json"),
	}
	p.loadRestoreToken()
	return p, nil
}

// Available reports whether the desktop portal service is reachable
// without starting a session.
func Available() bool {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return false
	}
	defer conn.Close()

	var owner string
	err = conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, portalService).Store(&owner)
	return err == nil && owner != ""
}

// Close tears down the screen-cast session and the bus connection.
func (p *Portal) Close() error {
	if p.pipewireFD >= 0 {
		fd := os.NewFile(uintptr(p.pipewireFD), "pipewire")
		fd.Close()
		p.pipewireFD = -1
	}
	if p.sessionHandle != "" {
		p.conn.Object(portalService, p.sessionHandle).Call(
			"org.freedesktop.portal.Session.Close", 0,
		)
	}
	return p.conn.Close()
}

// NodeID returns the PipeWire node carrying the screen stream.
func (p *Portal) NodeID() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodeID
}

// PipeWireFD returns the file descriptor for the PipeWire remote, or
// -1 when OpenPipeWireRemote was not granted.
func (p *Portal) PipeWireFD() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pipewireFD
}

// Start runs the full handshake: CreateSession, SelectSources, Start,
// OpenPipeWireRemote. The source-selection step may pop a dialog and
// waits longest.
func (p *Portal) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := logger.WithComponent("portal")

	sessionHandle, err := p.createSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	p.sessionHandle = sessionHandle
	log.Debug().Str("session", string(sessionHandle)).Msg("Created portal session")

	if err := p.selectSources(sessionHandle); err != nil {
		return fmt.Errorf("failed to select sources: %w", err)
	}
	log.Debug().Msg("Selected sources")

	nodeID, err := p.startCast(sessionHandle)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	p.nodeID = nodeID

	if fd, err := p.openPipeWireRemote(sessionHandle); err != nil {
		log.Warn().Err(err).Msg("OpenPipeWireRemote failed, pipewiresrc will connect on its own")
	} else {
		p.pipewireFD = fd
	}

	log.Info().Uint32("node_id", nodeID).Msg("Screen capture session started")
	return nil
}

// requestCall invokes a ScreenCast request method and waits for the
// matching org.freedesktop.portal.Request.Response signal. The signal
// channel is registered before the call so a fast portal cannot race
// the listener.
func (p *Portal) requestCall(method string, timeout time.Duration, args ...interface{}) (map[string]dbus.Variant, error) {
	log := logger.WithComponent("portal")
	obj := p.conn.Object(portalService, portalPath)

	responseChan := make(chan *dbus.Signal, 10)
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add signal match rule")
	}
	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.Call(screenCastIface+"."+method, 0, args...).Store(&requestPath); err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	log.Debug().
		Str("method", method).
		Str("request_path", string(requestPath)).
		Msg("Waiting for portal response")

	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for %s response", method)
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			if len(sig.Body) < 2 {
				return nil, fmt.Errorf("malformed %s response", method)
			}
			code, _ := sig.Body[0].(uint32)
			if code != 0 {
				return nil, fmt.Errorf("%s denied by portal (code %d)", method, code)
			}
			results, _ := sig.Body[1].(map[string]dbus.Variant)
			return results, nil
		}
	}
}

func (p *Portal) createSession() (dbus.ObjectPath, error) {
	options := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(fmt.Sprintf("vplink%d", os.Getpid())),
		"session_handle_token": dbus.MakeVariant(fmt.Sprintf("session%d", os.Getpid())),
	}
	results, err := p.requestCall("CreateSession", 30*time.Second, options)
	if err != nil {
		return "", err
	}

	handle, ok := results["session_handle"]
	if !ok {
		return "", fmt.Errorf("no session handle in response")
	}
	switch v := handle.Value().(type) {
	case dbus.ObjectPath:
		return v, nil
	case string:
		return dbus.ObjectPath(v), nil
	default:
		return "", fmt.Errorf("unexpected session_handle type: %T", v)
	}
}

func (p *Portal) selectSources(sessionHandle dbus.ObjectPath) error {
	log := logger.WithComponent("portal")
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("select%d", os.Getpid())),
		"types":        dbus.MakeVariant(uint32(SourceTypeMonitor)),
		"multiple":     dbus.MakeVariant(false),
		"cursor_mode":  dbus.MakeVariant(uint32(CursorModeMetadata | CursorModeEmbedded)),
		"persist_mode": dbus.MakeVariant(uint32(PersistModeSession)),
	}
	if p.restoreToken != "" {
		options["restore_token"] = dbus.MakeVariant(p.restoreToken)
		log.Debug().Msg("Using saved restore token")
	}

	// The user may need to pick a screen in a dialog, so this step
	// gets the long timeout.
	_, err := p.requestCall("SelectSources", 60*time.Second, sessionHandle, options)
	return err
}

func (p *Portal) startCast(sessionHandle dbus.ObjectPath) (uint32, error) {
	log := logger.WithComponent("portal")
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("start%d", os.Getpid())),
	}
	results, err := p.requestCall("Start", 30*time.Second, sessionHandle, "", options)
	if err != nil {
		return 0, err
	}

	if restoreToken, ok := results["restore_token"]; ok {
		if token, ok := restoreToken.Value().(string); ok {
			p.restoreToken = token
			p.saveRestoreToken()
			log.Debug().Msg("Saved restore token for future sessions")
		}
	}

	streams, ok := results["streams"]
	if !ok {
		return 0, fmt.Errorf("no streams in response")
	}
	// streams is a(ua{sv}); godbus decodes it as nested interfaces
	// whose exact shape varies by portal implementation.
	switch v := streams.Value().(type) {
	case [][]interface{}:
		if len(v) > 0 && len(v[0]) > 0 {
			if nodeID, ok := v[0][0].(uint32); ok {
				return nodeID, nil
			}
		}
	case []interface{}:
		if len(v) > 0 {
			if stream, ok := v[0].([]interface{}); ok && len(stream) > 0 {
				if nodeID, ok := stream[0].(uint32); ok {
					return nodeID, nil
				}
			}
		}
	default:
		log.Warn().Str("type", fmt.Sprintf("%T", v)).Msg("Unknown streams format")
	}
	return 0, fmt.Errorf("could not extract node id from streams")
}

// openPipeWireRemote asks the portal for a connected PipeWire socket so
// pipewiresrc does not need ambient access to the daemon.
func (p *Portal) openPipeWireRemote(sessionHandle dbus.ObjectPath) (int, error) {
	obj := p.conn.Object(portalService, portalPath)
	var fd dbus.UnixFD
	err := obj.Call(screenCastIface+".OpenPipeWireRemote", 0,
		sessionHandle, map[string]dbus.Variant{}).Store(&fd)
	if err != nil {
		return -1, fmt.Errorf("OpenPipeWireRemote call failed: %w", err)
	}
	return int(fd), nil
}

func (p *Portal) loadRestoreToken() {
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return
	}
	var token struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return
	}
	p.restoreToken = token.Token
}

func (p *Portal) saveRestoreToken() {
	if p.restoreToken == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0755); err != nil {
		return
	}
	data, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: p.restoreToken})
	if err != nil {
		return
	}
	os.WriteFile(p.tokenPath, data, 0600)
}
