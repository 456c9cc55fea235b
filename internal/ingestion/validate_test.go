package ingestion

import "testing"

func TestValidBitcoinAddress(t *testing.T) {
	cases := []struct {
		name    string
		address string
		want    bool
	}{
		{"genesis p2pkh", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", true},
		{"p2sh", "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", true},
		{"corrupted checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", false},
		{"too short", "1abc", false},
		{"not base58", "1A1zP1eP5QGefi2DMPTfTL5SLmv7Div0Ol", false},
		{"segwit", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", true},
		{"segwit mixed case", "bc1QAR0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", false},
		{"segwit bad charset", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdb", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidBitcoinAddress(tc.address); got != tc.want {
				t.Errorf("ValidBitcoinAddress(%q) = %v, want %v", tc.address, got, tc.want)
			}
		})
	}
}

func TestValidTransactionHash(t *testing.T) {
	valid := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

	if !ValidTransactionHash(valid) {
		t.Error("expected genesis coinbase txid to validate")
	}
	if ValidTransactionHash(valid[:63]) {
		t.Error("63 chars must not validate")
	}
	if ValidTransactionHash(valid + "0") {
		t.Error("65 chars must not validate")
	}
	if ValidTransactionHash(valid[:63] + "g") {
		t.Error("non-hex char must not validate")
	}
}
