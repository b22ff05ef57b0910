package models

import "time"

// Device is a playback device with up to two probeable interfaces.
type Device struct {
	ID           string
	Name         string
	LanIP        string
	WifiIP       string
	IsActive     bool
	LanActive    bool
	WifiActive   bool
	LastSeen     *time.Time
	LastProbedAt *time.Time
}

// HasInterfaces reports whether at least one address is declared.
func (d *Device) HasInterfaces() bool {
	return d.LanIP != "" || d.WifiIP != ""
}

// DeviceStatus is the outcome of probing one device.
type DeviceStatus struct {
	DeviceID   string     `json:"device_id"`
	IsActive   bool       `json:"is_active"`
	LanActive  bool       `json:"lan_active"`
	WifiActive bool       `json:"wifi_active"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	ProbedAt   time.Time  `json:"probed_at"`
	// Persisted is false when the status could not be written back.
	Persisted bool `json:"persisted"`
	// Skipped is set when the cycle deadline passed before the device
	// was probed; its stored state was left untouched.
	Skipped bool `json:"skipped,omitempty"`
}

// FleetSummary aggregates one probe cycle.
type FleetSummary struct {
	Total           int             `json:"total"`
	Active          int             `json:"active"`
	Inactive        int             `json:"inactive"`
	LanActive       int             `json:"lan_active"`
	WifiActive      int             `json:"wifi_active"`
	PersistFailures int             `json:"persist_failures"`
	Skipped         int             `json:"skipped"`
	Devices         []*DeviceStatus `json:"devices"`
}

// Add folds one device status into the summary.
func (s *FleetSummary) Add(st *DeviceStatus) {
	s.Total++
	s.Devices = append(s.Devices, st)
	if st.Skipped {
		s.Skipped++
		return
	}
	if st.IsActive {
		s.Active++
	} else {
		s.Inactive++
	}
	if st.LanActive {
		s.LanActive++
	}
	if st.WifiActive {
		s.WifiActive++
	}
	if !st.Persisted {
		s.PersistFailures++
	}
}
