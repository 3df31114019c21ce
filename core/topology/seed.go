package topology

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/roamnet/core/model"
)

// Seed describes an initial hierarchy loaded at startup. Child ids are
// local to their operator, e.g. EVSE "1201" of operator "DE*GEF" becomes
// DE*GEF*E1201.
type Seed struct {
	Operators []OperatorSeed `yaml:"operators"`
}

type OperatorSeed struct {
	ID    model.OperatorID `yaml:"id"`
	Name  string           `yaml:"name"`
	Pools []PoolSeed       `yaml:"pools"`
}

type PoolSeed struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Stations []StationSeed `yaml:"stations"`
}

type StationSeed struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	EVSEs []EVSESeed `yaml:"evses"`
}

// EVSESeed optionally carries the initial status values.
type EVSESeed struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Status      string `yaml:"status"`
	AdminStatus string `yaml:"admin_status"`
}

// DecodeSeed parses a YAML seed document.
func DecodeSeed(r io.Reader) (Seed, error) {
	var s Seed
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("decode topology seed: %w", err)
	}
	return s, nil
}

// LoadSeedFile reads and decodes a seed file.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()
	return DecodeSeed(f)
}

// Len returns the number of entities the seed describes.
func (s Seed) Len() int {
	n := 0
	for _, op := range s.Operators {
		n++
		for _, p := range op.Pools {
			n++
			for _, st := range p.Stations {
				n += 1 + len(st.EVSEs)
			}
		}
	}
	return n
}

// Apply adds every entity of the seed to n, parents first, then records
// the initial EVSE statuses at ts. It stops at the first error.
func (s Seed) Apply(n *Network, ts time.Time) error {
	for _, op := range s.Operators {
		if err := n.AddOperator(op.ID, op.Name); err != nil {
			return fmt.Errorf("operator %s: %w", op.ID, err)
		}
		for _, p := range op.Pools {
			pool := model.Pool(op.ID, p.ID)
			if err := n.AddPool(pool, p.Name); err != nil {
				return fmt.Errorf("pool %s: %w", pool, err)
			}
			for _, st := range p.Stations {
				station := model.Station(op.ID, st.ID)
				if err := n.AddStation(pool, station, st.Name); err != nil {
					return fmt.Errorf("station %s: %w", station, err)
				}
				for _, e := range st.EVSEs {
					evse := model.EVSE(op.ID, e.ID)
					if err := n.AddEVSE(station, evse, e.Name); err != nil {
						return fmt.Errorf("evse %s: %w", evse, err)
					}
					if err := seedStatus(n, evse, e, ts); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func seedStatus(n *Network, evse model.EntityRef, e EVSESeed, ts time.Time) error {
	if e.Status != "" {
		st, ok := model.ParseStatus(e.Status)
		if !ok {
			return fmt.Errorf("evse %s: unknown status %q", evse, e.Status)
		}
		if _, err := n.SetStatus(evse, st, ts); err != nil {
			return err
		}
	}
	if e.AdminStatus != "" {
		st, ok := model.ParseAdminStatus(e.AdminStatus)
		if !ok {
			return fmt.Errorf("evse %s: unknown admin status %q", evse, e.AdminStatus)
		}
		if _, err := n.SetAdminStatus(evse, st, ts); err != nil {
			return err
		}
	}
	return nil
}
