package proxyaudit

import "testing"

// PostgresSink talking to a real server is covered by integration testing
// against a live database; there's no embedded Postgres fake in this
// module's dependency set (unlike the Redis snapshot store, which tests
// against miniredis). This test only pins the compile-time contract: both
// sinks satisfy the same Sink interface.
func TestSinksSatisfyInterface(t *testing.T) {
	var _ Sink = (*SQLiteSink)(nil)
	var _ Sink = (*PostgresSink)(nil)
}
