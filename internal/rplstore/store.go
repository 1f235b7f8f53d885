// Package rplstore persists the subset of RPL state that must survive a
// restart: per-instance DAO sequence counters (so a restarted node
// doesn't reuse a sequence a parent has already seen) and the storing-
// mode route table, following the teacher's JSON-plus-atomic-rename
// pattern for small, append-rarely documents.
package rplstore

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/google/renameio/v2/maybe"

	"github.com/sixlowpan/rpl/internal/rpl"
)

// dataVersion is the current version of the stored document.
const dataVersion = 1

// filePerm is the permissions for the store file.
const filePerm fs.FileMode = 0o640

// document is the on-disk structure.
type document struct {
	Version   int           `json:"version"`
	Instances []instanceDoc `json:"instances"`
	Routes    []routeDoc    `json:"routes,omitempty"`
}

type instanceDoc struct {
	InstanceID uint8 `json:"instance_id"`
	MyDAOSeqno uint8 `json:"my_dao_seqno"`
}

type routeDoc struct {
	PrefixLength uint8          `json:"prefix_length"`
	Prefix       []byte         `json:"prefix"`
	NextHop      string         `json:"next_hop"`
	PathSequence uint8          `json:"path_sequence"`
	LifetimeSecs float64        `json:"lifetime_secs"`
	State        rpl.RouteState `json:"state"`
}

// Store loads and persists RPL state to a single JSON file at path.
type Store struct {
	path string
}

// New returns a Store backed by path. The file isn't read or created
// until [Store.Load]/[Store.Save] is called.
func New(path string) (s *Store) {
	return &Store{path: path}
}

// Load reads the store file, if any, populating every instance in
// instances whose ID it recognizes and returning the persisted routes.
// A missing file is not an error: a freshly provisioned node starts
// from sequence zero with no routes.
func (s *Store) Load(instances map[uint8]*rpl.Instance) (routes []rpl.Route, err error) {
	defer func() { err = errors.Annotate(err, "rplstore: loading: %w") }()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("opening: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, file.Close()) }()

	var doc document
	if err = json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	for _, id := range doc.Instances {
		if inst, ok := instances[id.InstanceID]; ok {
			inst.MyDAOSeqno = id.MyDAOSeqno
		}
	}

	routes = make([]rpl.Route, 0, len(doc.Routes))
	for _, r := range doc.Routes {
		routes = append(routes, rpl.Route{
			Target: rpl.Target{
				PrefixLength: r.PrefixLength,
				Prefix:       r.Prefix,
			},
			NextHop:      rpl.NeighborKey(r.NextHop),
			PathSequence: r.PathSequence,
			Lifetime:     time.Duration(r.LifetimeSecs * float64(time.Second)),
			State:        r.State,
		})
	}

	return routes, nil
}

// Save atomically writes the current sequence counters of every
// instance in instances and the routes currently in table to the store
// file.
func (s *Store) Save(instances map[uint8]*rpl.Instance, table rpl.RouteTable) (err error) {
	defer func() { err = errors.Annotate(err, "rplstore: saving: %w") }()

	doc := document{
		Version:   dataVersion,
		Instances: make([]instanceDoc, 0, len(instances)),
	}

	for id, inst := range instances {
		doc.Instances = append(doc.Instances, instanceDoc{
			InstanceID: id,
			MyDAOSeqno: inst.MyDAOSeqno,
		})
	}

	if table != nil {
		for _, r := range table.All() {
			doc.Routes = append(doc.Routes, routeDoc{
				PrefixLength: r.Target.PrefixLength,
				Prefix:       r.Target.Prefix,
				NextHop:      string(r.NextHop),
				PathSequence: r.PathSequence,
				LifetimeSecs: r.Lifetime.Seconds(),
				State:        r.State,
			})
		}
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return maybe.WriteFile(s.path, buf, filePerm)
}
