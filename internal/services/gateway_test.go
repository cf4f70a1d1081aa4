package services

import "testing"

func TestGatewayServiceClientKey(t *testing.T) {
	gateway := NewGatewayService(GatewayConfig{
		ServerKey: "SB-Mid-server-test",
		ClientKey: "SB-Mid-client-test",
	})

	if got := gateway.ClientKey(); got != "SB-Mid-client-test" {
		t.Errorf("ClientKey() = %q; want SB-Mid-client-test", got)
	}
}
