package switchport

import (
	"fmt"

	"github.com/ovn-org/libovsdb/client"
	"github.com/ovn-org/libovsdb/model"
)

// ovsPort is the minimal Port table row this driver touches: its name
// (to match against) and VLAN tag (to retag). libovsdb decodes rows into
// models keyed by field tag.
type ovsPort struct {
	UUID string `ovsdb:"_uuid"`
	Name string `ovsdb:"name"`
	Tag  *int   `ovsdb:"tag"`
}

// NewOVSDBClient dials an Open vSwitch OVSDB server at addr (e.g.
// "tcp:127.0.0.1:6640" or "unix:/var/run/openvswitch/db.sock") and
// returns a client.Client usable as a Driver Transactor. The connection
// itself is established lazily by Driver.InstallPAEGroupFilter.
func NewOVSDBClient(addr string) (client.Client, error) {
	dbModel, err := model.NewClientDBModel("Open_vSwitch", map[string]model.Model{
		"Port": &ovsPort{},
	})
	if err != nil {
		return nil, fmt.Errorf("build ovsdb client model: %w", err)
	}

	c, err := client.NewOVSDBClient(dbModel, client.WithEndpoint(addr))
	if err != nil {
		return nil, fmt.Errorf("new ovsdb client for %s: %w", addr, err)
	}
	return c, nil
}
