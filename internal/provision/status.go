package provision

import (
	"context"
	"fmt"

	"github.com/modelstack/modelstack/internal/apps"
)

// ServiceStatus reports one service's install and runtime state.
type ServiceStatus struct {
	// Name is the short service name.
	Name string

	// Installed reports whether the service descriptor exists.
	Installed bool

	// Active reports whether the service manager considers it running.
	Active bool

	// Addr is the host:port local checks dial for the service.
	Addr string

	// Reachable reports whether an HTTP request to Addr gets any response.
	Reachable bool
}

// Status inspects both services without modifying the host. It does not
// require root.
func (p *Provisioner) Status(ctx context.Context) ([]ServiceStatus, error) {
	info, err := p.detect()
	if err != nil {
		return nil, fmt.Errorf("provision: detect platform: %w", err)
	}
	svc, err := p.pickSvcMgr(info)
	if err != nil {
		return nil, fmt.Errorf("provision: %w", err)
	}

	ports := map[string]int{
		apps.OllamaServiceName: p.cfg.Ollama.Port,
		apps.WebUIServiceName:  p.cfg.WebUI.Port,
	}

	var statuses []ServiceStatus
	for _, app := range managedApps() {
		st := ServiceStatus{
			Name:      app.Name,
			Installed: svc.IsInstalled(app),
			Addr:      p.probeAddr(ports[app.Name]),
		}
		if st.Installed {
			st.Active = svc.IsActive(ctx, app)
		}
		st.Reachable = p.reachable(ctx, st.Addr)
		statuses = append(statuses, st)
	}
	return statuses, nil
}
