package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	broadctl "github.com/muurk/broadctl"
)

// setupRoutes wires the API surface.
func (s *Server) setupRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/devices", s.handleDiscover)

	r.Route("/devices/{host}", func(r chi.Router) {
		r.Get("/", s.handleDeviceInfo)
		r.Post("/learn/ir", s.handleLearnIR)
		r.Post("/learn/rf", s.handleLearnRF)
		r.Post("/send", s.handleSend)
		r.Get("/power", s.handleGetPower)
		r.Put("/power", s.handleSetPower)
		r.Get("/energy", s.handleEnergy)
		r.Get("/sensors", s.handleSensors)
		r.Get("/state", s.handleGetState)
		r.Put("/state", s.handleSetState)
	})

	r.Route("/hubs/{host}", func(r chi.Router) {
		r.Get("/subdevices", s.handleSubDevices)
		r.Get("/subdevices/{did}", s.handleGetSubDevice)
		r.Put("/subdevices/{did}", s.handleSetSubDevice)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// deviceSummary is the JSON shape of one discovered device.
type deviceSummary struct {
	Host         string `json:"host"`
	MAC          string `json:"mac"`
	DevType      uint16 `json:"devtype"`
	Family       string `json:"family"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
	Locked       bool   `json:"locked"`
}

func summarize(d *broadctl.Device) deviceSummary {
	return deviceSummary{
		Host:         d.Host.IP.String(),
		MAC:          d.CanonicalMAC(),
		DevType:      d.DevType,
		Family:       d.Family.String(),
		Model:        d.Model,
		Manufacturer: d.Manufacturer,
		Name:         d.Name,
		Locked:       d.IsLocked,
	}
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	timeout := s.config.DiscoverTimeout
	if q := r.URL.Query().Get("timeout"); q != "" {
		parsed, err := time.ParseDuration(q)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "timeout must be a duration, e.g. 5s")
			return
		}
		timeout = parsed
	}

	devices, err := broadctl.Discover(broadctl.DiscoverOptions{Timeout: timeout})
	if err != nil {
		s.respondBroadlinkError(w, r, "", err)
		return
	}

	out := make([]deviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, summarize(d))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summarize(d))
}

// codeResponse carries a learned code back to the client.
type codeResponse struct {
	Code string `json:"code"`
}

func (s *Server) handleLearnIR(w http.ResponseWriter, r *http.Request) {
	s.handleLearn(w, r, func(l *broadctl.Learner) ([]byte, error) { return l.LearnIR() })
}

func (s *Server) handleLearnRF(w http.ResponseWriter, r *http.Request) {
	s.handleLearn(w, r, func(l *broadctl.Learner) ([]byte, error) { return l.LearnRF() })
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request, learn func(*broadctl.Learner) ([]byte, error)) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	learner, err := broadctl.NewLearner(d)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	code, err := learn(learner)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, codeResponse{Code: hex.EncodeToString(code)})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")

	var req codeResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := hex.DecodeString(req.Code)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "code must be hex")
		return
	}

	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	if err := d.SendData(code); err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleGetPower(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	if d.Family == broadctl.FamilyMP1 {
		states, err := d.CheckSocketPower()
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"sockets": states[:]})
		return
	}

	on, err := d.CheckPower()
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"on": on})
}

func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")

	var req struct {
		On     bool `json:"on"`
		Socket int  `json:"socket,omitempty"` // power strips only
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	if req.Socket != 0 {
		err = d.SetSocketPower(req.Socket, req.On)
	} else {
		err = d.SetPower(req.On)
	}
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"on": req.On})
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	kwh, err := d.GetEnergy()
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]float64{"kwh": kwh})
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	switch d.Family {
	case broadctl.FamilyA1:
		env, err := d.CheckEnvironment()
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{
			"temperature": env.Temperature,
			"humidity":    env.Humidity,
			"light":       env.Light,
			"air_quality": env.AirQuality,
			"noise":       env.Noise,
		})
	case broadctl.FamilyHysen:
		temp, err := d.GetTemperature()
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]float64{"temperature": temp})
	default:
		sensors, err := d.CheckSensors()
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]float64{
			"temperature": sensors.Temperature,
			"humidity":    sensors.Humidity,
		})
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	var state any
	switch d.Family {
	case broadctl.FamilyLB:
		state, err = d.GetLightState()
	case broadctl.FamilySP4:
		state, err = d.GetPlugState()
	case broadctl.FamilyBG1:
		state, err = d.GetOutletState()
	default:
		err = broadctl.ErrUnsupportedDevice
	}
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	var state any
	switch d.Family {
	case broadctl.FamilyLB:
		// Bulbs take free-form options so unknown keys fail loudly.
		var opts map[string]int
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		light, err := broadctl.LightStateFromOptions(opts)
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
		state, err = d.SetLightState(light)
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
	case broadctl.FamilySP4:
		var plug broadctl.PlugState
		if err := json.NewDecoder(r.Body).Decode(&plug); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		state, err = d.SetPlugState(plug)
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
	case broadctl.FamilyBG1:
		var outlet broadctl.OutletState
		if err := json.NewDecoder(r.Body).Decode(&outlet); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		state, err = d.SetOutletState(outlet)
		if err != nil {
			s.respondBroadlinkError(w, r, host, err)
			return
		}
	default:
		s.respondBroadlinkError(w, r, host, broadctl.ErrUnsupportedDevice)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSubDevices(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	subs, err := d.GetSubDevices()
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubDevice(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	state, err := d.GetSubDeviceState(chi.URLParam(r, "did"))
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetSubDevice(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	d, err := s.deviceFor(host)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}

	var state broadctl.SubDeviceState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	echo, err := d.SetSubDeviceState(chi.URLParam(r, "did"), state)
	if err != nil {
		s.respondBroadlinkError(w, r, host, err)
		return
	}
	s.respondJSON(w, http.StatusOK, echo)
}

// respondJSON writes v as the JSON response body.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body.
func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

// respondBroadlinkError maps library error kinds onto HTTP statuses. A
// network timeout also evicts the cached handle so the next request
// starts from a fresh probe.
func (s *Server) respondBroadlinkError(w http.ResponseWriter, r *http.Request, host string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, broadctl.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, broadctl.ErrUnsupportedDevice):
		status = http.StatusConflict
	case errors.Is(err, broadctl.ErrNetworkTimeout):
		status = http.StatusGatewayTimeout
		if host != "" {
			s.dropDevice(host)
		}
	case errors.Is(err, broadctl.ErrLearnTimeout):
		status = http.StatusRequestTimeout
	case errors.Is(err, broadctl.ErrNotReady):
		status = http.StatusAccepted
	case errors.Is(err, broadctl.ErrAuth):
		status = http.StatusForbidden
		if host != "" {
			s.dropDevice(host)
		}
	}
	s.respondError(w, status, err.Error())
}
