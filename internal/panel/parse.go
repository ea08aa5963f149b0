package panel

import (
	"encoding/json"

	logx "xuibot/pkg/logx"
)

// inboundSettings mirrors the "settings" JSON column. Clients are decoded
// individually so one malformed record never discards the rest.
type inboundSettings struct {
	Clients []json.RawMessage `json:"clients"`
}

type streamSettings struct {
	Network  string `json:"network"`
	Security string `json:"security"`
	Settings struct {
		PublicKey   string `json:"publicKey"`
		Fingerprint string `json:"fingerprint"`
	} `json:"settings"`
	RealitySettings struct {
		ServerNames []string `json:"serverNames"`
		ShortIDs    []string `json:"shortIds"`
	} `json:"realitySettings"`
}

func parseClients(settings []byte, log logx.Logger) ([]Client, error) {
	if len(settings) == 0 {
		return nil, nil
	}
	var s inboundSettings
	if err := json.Unmarshal(settings, &s); err != nil {
		return nil, err
	}
	out := make([]Client, 0, len(s.Clients))
	for i, raw := range s.Clients {
		var c Client
		if err := json.Unmarshal(raw, &c); err != nil {
			log.Warn("skipping malformed client record", logx.Int("index", i), logx.Err(err))
			continue
		}
		if c.ID == "" && c.Email == "" {
			log.Warn("skipping empty client record", logx.Int("index", i))
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func parseStreamMeta(listen string, port int, remark string, stream []byte) (InboundMeta, error) {
	meta := InboundMeta{
		Listen:  listen,
		Port:    port,
		Remark:  remark,
		Network: "tcp",
	}
	if len(stream) == 0 {
		return meta, nil
	}
	var ss streamSettings
	if err := json.Unmarshal(stream, &ss); err != nil {
		return InboundMeta{}, err
	}
	if ss.Network != "" {
		meta.Network = ss.Network
	}
	meta.Security = ss.Security
	if meta.Security == "" {
		meta.Security = "none"
	}
	meta.PublicKey = ss.Settings.PublicKey
	meta.Fingerprint = ss.Settings.Fingerprint
	if len(ss.RealitySettings.ServerNames) > 0 {
		meta.ServerName = ss.RealitySettings.ServerNames[0]
	}
	if len(ss.RealitySettings.ShortIDs) > 0 {
		meta.ShortID = ss.RealitySettings.ShortIDs[0]
	}
	return meta, nil
}
