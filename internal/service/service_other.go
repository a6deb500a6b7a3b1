//go:build !linux

package service

const (
	serviceName    = "hostsctl"
	defaultUnitDir = ""
	unitFileName   = "hostsctl.service"
)

func (m *Manager) install(Config) error { return ErrUnsupported }
func (m *Manager) uninstall() error     { return ErrUnsupported }
func (m *Manager) start() error         { return ErrUnsupported }
func (m *Manager) stop() error          { return ErrUnsupported }
