package cloud

import "path"

// Object key layout under the run's bucket. Fixed so independent
// agents and operators resolve the same artifacts without
// coordination.
//
//	<run-id>/pki/<name>.key.encrypted
//	<run-id>/pki/<name>.crt
//	<run-id>/beacon-nodes/<node-id>.yaml
//	<run-id>/config.yaml

// KeyObjectKey is where a node's KMS-encrypted staking key lives.
func KeyObjectKey(runID, name string) string {
	return path.Join(runID, "pki", name+".key.encrypted")
}

// CertObjectKey is where a node's staking certificate lives.
func CertObjectKey(runID, name string) string {
	return path.Join(runID, "pki", name+".crt")
}

// BeaconObjectKey is where a beacon node description lives.
func BeaconObjectKey(runID, nodeID string) string {
	return path.Join(runID, "beacon-nodes", nodeID+".yaml")
}

// ConfigObjectKey is where the run's spec lives.
func ConfigObjectKey(runID string) string {
	return path.Join(runID, "config.yaml")
}
