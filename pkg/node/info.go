// Package node queries running avalanchego nodes for their identity.
package node

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/ava-labs/avalanchego/api/info"
	"golang.org/x/sync/errgroup"
)

const defaultAPIPort = "9650"

// NodeInfo holds identity details reported by a running node.
type NodeInfo struct {
	URI                  string
	NodeID               string
	Version              string
	BLSPublicKey         string
	BLSProofOfPossession string
}

// NormalizeNodeURI turns a node address into the base URI the info API
// client expects. Accepted forms are host, host:port, and full
// http/https URIs with no path beyond the /ext/info suffix. http to a
// non-local host is refused.
func NormalizeNodeURI(raw string) (string, error) {
	return NormalizeNodeURIWithInsecureHTTP(raw, false)
}

// NormalizeNodeURIWithInsecureHTTP is NormalizeNodeURI with an opt-in
// for plain http to non-local hosts.
func NormalizeNodeURIWithInsecureHTTP(raw string, allowInsecureHTTP bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("node uri is empty")
	}

	if !strings.Contains(raw, "://") {
		return normalizeHostPort(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse node uri %q: %w", raw, err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !allowInsecureHTTP && !isLocalHost(u.Hostname()) {
			return "", fmt.Errorf("refusing insecure http to non-local host %q", u.Hostname())
		}
	default:
		return "", fmt.Errorf("unsupported scheme %q in node uri %q", u.Scheme, raw)
	}

	switch strings.TrimSuffix(u.Path, "/") {
	case "", "/ext/info":
	default:
		return "", fmt.Errorf("node uri %q must not carry a path", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("node uri %q must not carry a query or fragment", raw)
	}

	return u.Scheme + "://" + u.Host, nil
}

// normalizeHostPort handles the host[:port] shorthand. Loopback hosts
// get http, everything else https.
func normalizeHostPort(raw string) (string, error) {
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("node address %q must not contain a path", raw)
	}

	host, port := raw, ""
	if h, p, err := net.SplitHostPort(raw); err == nil {
		host, port = h, p
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return "", fmt.Errorf("node address %q has no host", raw)
	}
	if port == "" {
		port = defaultAPIPort
	}

	scheme := "https"
	if isLocalHost(host) {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, port)), nil
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.IsLoopback()
}

// GetNodeInfo queries the node behind uri for its node ID, version,
// and BLS proof of possession.
func GetNodeInfo(ctx context.Context, uri string) (*NodeInfo, error) {
	return GetNodeInfoWithInsecureHTTP(ctx, uri, false)
}

// GetNodeInfoWithInsecureHTTP is GetNodeInfo with an opt-in for plain
// http to non-local hosts.
func GetNodeInfoWithInsecureHTTP(ctx context.Context, uri string, allowInsecureHTTP bool) (*NodeInfo, error) {
	normalized, err := NormalizeNodeURIWithInsecureHTTP(uri, allowInsecureHTTP)
	if err != nil {
		return nil, err
	}

	infoClient := info.NewClient(normalized)

	nodeID, nodePoP, err := infoClient.GetNodeID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get node id from %s: %w", normalized, err)
	}

	versionReply, err := infoClient.GetNodeVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get node version from %s: %w", normalized, err)
	}

	blsPubKey := ""
	blsPoP := ""
	if nodePoP != nil {
		blsPubKey = hex.EncodeToString(nodePoP.PublicKey[:])
		blsPoP = hex.EncodeToString(nodePoP.ProofOfPossession[:])
	}

	return &NodeInfo{
		URI:                  normalized,
		NodeID:               nodeID.String(),
		Version:              versionReply.Version,
		BLSPublicKey:         blsPubKey,
		BLSProofOfPossession: blsPoP,
	}, nil
}

// GetNodeIDs queries several nodes concurrently and returns their node
// IDs in input order.
func GetNodeIDs(ctx context.Context, uris []string) ([]string, error) {
	nodeIDs := make([]string, len(uris))

	g, gctx := errgroup.WithContext(ctx)
	for i, uri := range uris {
		g.Go(func() error {
			nodeInfo, err := GetNodeInfo(gctx, uri)
			if err != nil {
				return err
			}
			nodeIDs[i] = nodeInfo.NodeID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return nodeIDs, nil
}
