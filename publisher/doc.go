// Package publisher exports the binding set of each pass to NATS JetStream KV.
//
// Every bound client gets one record under "<prefix>.<ue-address>". Records of
// clients that left are deleted, and a pass whose bindings did not change
// writes nothing. Downstream readers (dashboards, the N3 switch agent) watch
// the bucket; the balancer itself never reads the records back as input.
package publisher
