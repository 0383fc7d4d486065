package link

import (
	"fmt"
	"testing"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

func TestNewLinkedWallet(t *testing.T) {
	tests := []struct {
		name      string
		wallet    provider.Wallet
		address   string
		vm        chain.VMType
		connector string
	}{
		{"evm", newEVMWallet("w1", evmAddr), evmAddr, chain.VMTypeEVM, "metamask"},
		{"bitcoin uses payment address", newBTCWallet("w2", btcOrdinals, btcPayment), btcPayment, chain.VMTypeBVM, "xverse"},
		{"solana", newSolWallet("w3", solAddr), solAddr, chain.VMTypeSVM, "phantom"},
		{"unknown family", &baseWallet{id: "w4", address: "addr"}, "addr", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lw := NewLinkedWallet(tc.wallet)
			if lw.Address != tc.address {
				t.Errorf("Address = %s, want %s", lw.Address, tc.address)
			}
			if lw.VMType != tc.vm {
				t.Errorf("VMType = %s, want %s", lw.VMType, tc.vm)
			}
			if lw.Connector != tc.connector {
				t.Errorf("Connector = %s, want %s", lw.Connector, tc.connector)
			}
		})
	}
}

func TestNewLinkedWalletBitcoinWithoutPayment(t *testing.T) {
	w := newBTCWallet("w1", btcOrdinals, btcPayment)
	w.extra = nil

	if lw := NewLinkedWallet(w); lw.Address != btcOrdinals {
		t.Errorf("Address = %s, want %s", lw.Address, btcOrdinals)
	}
}

func TestDeriveLinkedWalletsPreservesOrder(t *testing.T) {
	for n := 0; n < 8; n++ {
		wallets := make([]provider.Wallet, 0, n)
		for i := 0; i < n; i++ {
			switch i % 3 {
			case 0:
				wallets = append(wallets, newEVMWallet(fmt.Sprintf("w%d", i), fmt.Sprintf("0x%040d", i)))
			case 1:
				wallets = append(wallets, newSolWallet(fmt.Sprintf("w%d", i), fmt.Sprintf("sol%d", i)))
			default:
				wallets = append(wallets, &baseWallet{id: fmt.Sprintf("w%d", i), address: fmt.Sprintf("x%d", i)})
			}
		}

		linked := DeriveLinkedWallets(wallets)
		if len(linked) != len(wallets) {
			t.Fatalf("n=%d: len = %d, want %d", n, len(linked), len(wallets))
		}
		for i, lw := range linked {
			if lw.Address != wallets[i].Address() {
				t.Errorf("n=%d: linked[%d] = %s, want %s", n, i, lw.Address, wallets[i].Address())
			}
		}
	}
}

func TestRegistryUpdateRecomputes(t *testing.T) {
	r := NewRegistry()
	if got := r.LinkedWallets(); len(got) != 0 {
		t.Fatalf("new registry has %d wallets", len(got))
	}

	r.Update([]provider.Wallet{newEVMWallet("w1", evmAddr), newSolWallet("w2", solAddr)})
	r.Update([]provider.Wallet{newSolWallet("w2", solAddr)})

	linked := r.LinkedWallets()
	if len(linked) != 1 || linked[0].Address != solAddr {
		t.Errorf("LinkedWallets = %+v, want only %s", linked, solAddr)
	}
	if len(r.Wallets()) != 1 {
		t.Errorf("Wallets len = %d, want 1", len(r.Wallets()))
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	r.Update([]provider.Wallet{newBTCWallet("w1", btcOrdinals, btcPayment)})

	linked := r.LinkedWallets()
	linked[0].Address = "mutated"
	linked[0].AdditionalAddresses[0] = "mutated"

	again := r.LinkedWallets()
	if again[0].Address != btcPayment || again[0].AdditionalAddresses[0] != btcOrdinals {
		t.Errorf("registry snapshot was mutated through a returned copy: %+v", again[0])
	}
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry()
	btc := newBTCWallet("btc", btcOrdinals, btcPayment)
	evm := newEVMWallet("evm", evmAddr)
	r.Update([]provider.Wallet{evm, btc})

	tests := []struct {
		address string
		want    string
	}{
		{evmAddr, "evm"},
		{"0x742d35cc6634c0532925a3b844bc454e4438f44e", "evm"},
		{btcOrdinals, "btc"},
		{btcPayment, "btc"},
		{"0xABC", ""},
	}

	for _, tc := range tests {
		w := r.Find(tc.address)
		got := ""
		if w != nil {
			got = w.ID()
		}
		if got != tc.want {
			t.Errorf("Find(%s) = %q, want %q", tc.address, got, tc.want)
		}
	}
}
