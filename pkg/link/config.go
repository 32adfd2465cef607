// config.go implements JSON export and import of the link configuration.
//
// Persisted Format (UTF-8 JSON):
//
//	{
//	  "pairedDevices": {
//	    "addr":   ["1BBBB", "0", "0", "0", "0"],
//	    "pubKey": ["<base64>", "", "", "", ""]
//	  },
//	  "personalKeys": {
//	    "publicKey":  "<base64>",
//	    "privateKey": "<base64>"
//	  }
//	}
//
// "0" marks a free slot. Import is zero-tolerant: free slots are cleared,
// occupied slots reinstalled, and the reading pipes reopened accordingly.
// Storage of the blob itself (filesystem, NVS, ...) is the caller's concern.
package link

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/metrics"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

type personalKeysJSON struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

type configJSON struct {
	PairedDevices pairedDevicesJSON `json:"pairedDevices"`
	PersonalKeys  personalKeysJSON  `json:"personalKeys"`
}

// PairedDevicesJSON serializes the directory alone. Public keys are
// included only when requested.
func (m *Manager) PairedDevicesJSON(keys bool) (string, error) {
	out, err := json.Marshal(m.dir.export(keys))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SetPairedDevicesJSON replaces the directory from its serialized form and
// reinitializes the radio pipes. Slots that fail to install are skipped.
func (m *Manager) SetPairedDevicesJSON(blob string) error {
	var in pairedDevicesJSON
	if err := json.Unmarshal([]byte(blob), &in); err != nil {
		return rlerrors.ErrInvalidConfig
	}
	if in.Addr == nil {
		return rlerrors.ErrInvalidConfig
	}
	m.importDevices(in)
	m.initRadio()
	return nil
}

func (m *Manager) importDevices(in pairedDevicesJSON) {
	for i := uint8(0); i < constants.MaxChannels; i++ {
		if int(i) >= len(in.Addr) {
			continue
		}
		if in.Addr[i] == "0" || in.Addr[i] == "" {
			m.dir.Clear(i)
			continue
		}

		var pubKey []byte
		if int(i) < len(in.PubKey) && in.PubKey[i] != "" {
			decoded, err := base64.StdEncoding.DecodeString(in.PubKey[i])
			if err != nil {
				m.log.Warn("config: undecodable public key, slot skipped",
					metrics.Fields{"channel": i})
				continue
			}
			pubKey = decoded
		}

		if err := m.SetPairedAddr(protocol.Address(in.Addr[i]), i, pubKey); err != nil {
			m.log.Warn("config: slot import failed",
				metrics.Fields{"channel": i, "err": err.Error()})
		}
	}
}

// ExportCfg serializes the full link configuration: paired directory and
// personal keys.
func (m *Manager) ExportCfg() (string, error) {
	cfg := configJSON{
		PairedDevices: m.dir.export(true),
		PersonalKeys: personalKeysJSON{
			PublicKey:  base64.StdEncoding.EncodeToString(m.publicKey[:]),
			PrivateKey: base64.StdEncoding.EncodeToString(m.privateKey[:]),
		},
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ImportCfg restores a configuration produced by ExportCfg. Personal keys
// install first so shared keys re-derive against the right identity.
func (m *Manager) ImportCfg(blob string) error {
	var cfg configJSON
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return rlerrors.ErrInvalidConfig
	}

	if cfg.PersonalKeys.PublicKey != "" || cfg.PersonalKeys.PrivateKey != "" {
		pub, err := base64.StdEncoding.DecodeString(cfg.PersonalKeys.PublicKey)
		if err != nil {
			return rlerrors.ErrInvalidConfig
		}
		priv, err := base64.StdEncoding.DecodeString(cfg.PersonalKeys.PrivateKey)
		if err != nil {
			return rlerrors.ErrInvalidConfig
		}
		if err := m.SetPersonalKeys(pub, priv); err != nil {
			return err
		}
	}

	if cfg.PairedDevices.Addr != nil {
		m.importDevices(cfg.PairedDevices)
		m.initRadio()
	}
	return nil
}
