package types

import "testing"

func TestNetworkByName(t *testing.T) {
	tests := []struct {
		input   string
		want    *Network
		wantErr bool
	}{
		{input: "mainnet", want: Mainnet},
		{input: "main", want: Mainnet},
		{input: "Testnet", want: Testnet},
		{input: "test", want: Testnet},
		{input: "regtest", want: Regtest},
		{input: " signet ", want: Signet},
		{input: "litecoin", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NetworkByName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NetworkByName(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("NetworkByName(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NetworkByName(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestNetwork_Constants(t *testing.T) {
	tests := []struct {
		net  *Network
		hrp  string
		coin uint32
	}{
		{Mainnet, "bc", 0},
		{Testnet, "tb", 1},
		{Regtest, "bcrt", 1},
		{Signet, "tb", 1},
	}
	for _, tt := range tests {
		if got := tt.net.HRP(); got != tt.hrp {
			t.Errorf("%s HRP = %s, want %s", tt.net, got, tt.hrp)
		}
		if got := tt.net.CoinType(); got != tt.coin {
			t.Errorf("%s coin type = %d, want %d", tt.net, got, tt.coin)
		}
	}
	if !Mainnet.IsMainnet() || Testnet.IsMainnet() {
		t.Error("IsMainnet mismatch")
	}
}

func TestNetworkNames(t *testing.T) {
	names := NetworkNames()
	want := []string{"mainnet", "regtest", "signet", "testnet"}
	if len(names) != len(want) {
		t.Fatalf("NetworkNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("NetworkNames()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
