package bootstrap

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

// DefaultStakingPort is the port beacon nodes listen on for staking
// connections.
const DefaultStakingPort uint16 = 9651

// BeaconNode describes one seed node a bootstrapping node may connect
// to. The two fields feed the --bootstrap-ips and --bootstrap-ids node
// flags and must stay index-aligned when aggregated.
type BeaconNode struct {
	IP string `yaml:"ip"`
	ID string `yaml:"id"`
}

// Validate checks both fields parse.
func (b BeaconNode) Validate() error {
	if _, err := netip.ParseAddr(b.IP); err != nil {
		return fmt.Errorf("invalid beacon ip %q: %w", b.IP, err)
	}
	if _, err := nodeid.ParseID(b.ID); err != nil {
		return fmt.Errorf("invalid beacon node id %q: %w", b.ID, err)
	}
	return nil
}

// Save writes the beacon description as YAML.
func (b BeaconNode) Save(path string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal beacon node: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write beacon file: %w", err)
	}
	return nil
}

// LoadBeaconNode reads and validates one beacon YAML file.
func LoadBeaconNode(path string) (BeaconNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BeaconNode{}, fmt.Errorf("failed to read beacon file: %w", err)
	}

	var b BeaconNode
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return BeaconNode{}, fmt.Errorf("failed to parse beacon file %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return BeaconNode{}, fmt.Errorf("invalid beacon file %s: %w", path, err)
	}
	return b, nil
}

// LoadDir reads every .yaml file in dir as a beacon description,
// ordered by file name so the aggregated flag values are stable across
// runs.
func LoadDir(dir string) ([]BeaconNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read beacon directory: %w", err)
	}

	var nodes []BeaconNode
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		b, err := LoadBeaconNode(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, b)
	}
	return nodes, nil
}

// JoinFlags renders the beacon list as the comma-joined values of the
// --bootstrap-ips and --bootstrap-ids node flags. Both lists follow
// the input order, so entry i of one names the same node as entry i of
// the other. IPv6 addresses are bracketed the way the node's flag
// parser expects.
func JoinFlags(nodes []BeaconNode, port uint16) (ips string, ids string) {
	portStr := strconv.Itoa(int(port))
	ipList := make([]string, 0, len(nodes))
	idList := make([]string, 0, len(nodes))
	for _, b := range nodes {
		ipList = append(ipList, net.JoinHostPort(b.IP, portStr))
		idList = append(idList, b.ID)
	}
	return strings.Join(ipList, ","), strings.Join(idList, ",")
}
