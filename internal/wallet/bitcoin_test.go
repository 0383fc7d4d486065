package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

func testBitcoinWallet(t *testing.T) *BitcoinWallet {
	t.Helper()
	w, err := NewBitcoinWallet("btc-1", testKeyring(t), 0)
	if err != nil {
		t.Fatalf("NewBitcoinWallet() error = %v", err)
	}
	return w
}

// spendPSBT builds a PSBT spending one output per script.
func spendPSBT(t *testing.T, scripts ...[]byte) (string, []*wire.TxOut) {
	t.Helper()

	var outpoints []*wire.OutPoint
	var prevOuts []*wire.TxOut
	for i, script := range scripts {
		outpoints = append(outpoints, &wire.OutPoint{Hash: chainhash.Hash{byte(i + 1)}, Index: uint32(i)})
		prevOuts = append(prevOuts, wire.NewTxOut(50_000, script))
	}

	packet, err := psbt.New(outpoints, []*wire.TxOut{wire.NewTxOut(40_000, scripts[0])}, 2, 0, make([]uint32, len(scripts)))
	if err != nil {
		t.Fatalf("psbt.New() error = %v", err)
	}
	for i, out := range prevOuts {
		packet.Inputs[i].WitnessUtxo = out
	}

	encoded, err := packet.B64Encode()
	if err != nil {
		t.Fatalf("B64Encode() error = %v", err)
	}
	return encoded, prevOuts
}

func TestBitcoinAddresses(t *testing.T) {
	w := testBitcoinWallet(t)

	// BIP84 and BIP86 test vectors for the test mnemonic
	const payment = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"
	const ordinals = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"

	if w.PaymentAddress() != payment {
		t.Errorf("PaymentAddress() = %s, want %s", w.PaymentAddress(), payment)
	}
	if w.Address() != ordinals {
		t.Errorf("Address() = %s, want %s", w.Address(), ordinals)
	}

	extra := w.AdditionalAddresses()
	if len(extra) != 2 {
		t.Fatalf("AdditionalAddresses() len = %d, want 2", len(extra))
	}
	byType := map[string]string{}
	for _, a := range extra {
		byType[a.Type] = a.Address
		if a.PublicKey == "" {
			t.Errorf("%s address has no public key", a.Type)
		}
	}
	if byType[AddressTypePayment] != payment || byType[AddressTypeOrdinals] != ordinals {
		t.Errorf("AdditionalAddresses() = %+v", extra)
	}
}

func TestBitcoinSignPSBT(t *testing.T) {
	w := testBitcoinWallet(t)
	unsigned, prevOuts := spendPSBT(t, w.payment.pkScript, w.ordinals.pkScript)

	resp, err := w.SignPSBT(context.Background(), &provider.SignPSBTRequest{
		UnsignedPSBTBase64: unsigned,
		SignatureInputs: []provider.SignatureInput{
			{Address: w.payment.address, SigningIndexes: []int{0}},
			{Address: w.ordinals.address, SigningIndexes: []int{1}},
		},
	})
	if err != nil {
		t.Fatalf("SignPSBT() error = %v", err)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader([]byte(resp.SignedPSBT)), true)
	if err != nil {
		t.Fatalf("signed psbt does not parse: %v", err)
	}
	if len(packet.Inputs[0].PartialSigs) != 1 {
		t.Errorf("segwit input has %d partial sigs, want 1", len(packet.Inputs[0].PartialSigs))
	}
	if len(packet.Inputs[1].TaprootKeySpendSig) != 64 {
		t.Errorf("taproot sig length = %d, want 64", len(packet.Inputs[1].TaprootKeySpendSig))
	}

	// The signatures must satisfy the script engine once finalized.
	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		t.Fatalf("MaybeFinalizeAll() error = %v", err)
	}
	tx, err := psbt.Extract(packet)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, out := range prevOuts {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, out)
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, out := range prevOuts {
		vm, err := txscript.NewEngine(out.PkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, out.Value, fetcher)
		if err != nil {
			t.Fatalf("NewEngine(%d) error = %v", i, err)
		}
		if err := vm.Execute(); err != nil {
			t.Errorf("input %d does not verify: %v", i, err)
		}
	}
}

func TestBitcoinSignPSBTErrors(t *testing.T) {
	w := testBitcoinWallet(t)
	unsigned, _ := spendPSBT(t, w.payment.pkScript)

	noUtxo, err := psbt.New([]*wire.OutPoint{{Index: 0}}, []*wire.TxOut{wire.NewTxOut(1, w.payment.pkScript)}, 2, 0, []uint32{0})
	if err != nil {
		t.Fatal(err)
	}
	noUtxoB64, _ := noUtxo.B64Encode()

	tests := []struct {
		name    string
		psbt    string
		inputs  []provider.SignatureInput
		wantErr error
	}{
		{
			name:    "unknown address",
			psbt:    unsigned,
			inputs:  []provider.SignatureInput{{Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", SigningIndexes: []int{0}}},
			wantErr: ErrUnknownSigningAddress,
		},
		{
			name:    "missing witness utxo",
			psbt:    noUtxoB64,
			inputs:  []provider.SignatureInput{{Address: w.payment.address, SigningIndexes: []int{0}}},
			wantErr: ErrMissingWitnessUtxo,
		},
		{
			name:   "index out of range",
			psbt:   unsigned,
			inputs: []provider.SignatureInput{{Address: w.payment.address, SigningIndexes: []int{5}}},
		},
		{
			name:   "script owned by the other account",
			psbt:   unsigned,
			inputs: []provider.SignatureInput{{Address: w.ordinals.address, SigningIndexes: []int{0}}},
		},
		{
			name: "not a psbt",
			psbt: base64.StdEncoding.EncodeToString([]byte("hello")),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.SignPSBT(context.Background(), &provider.SignPSBTRequest{
				UnsignedPSBTBase64: tc.psbt,
				SignatureInputs:    tc.inputs,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestBitcoinSignMessage(t *testing.T) {
	w := testBitcoinWallet(t)
	msg := "link wallet"

	encoded, err := w.SignMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sig) != 65 {
		t.Fatalf("signature %q is not a base64 compact signature", encoded)
	}

	pub, compressed, err := ecdsa.RecoverCompact(sig, messageHash(msg))
	if err != nil {
		t.Fatalf("RecoverCompact() error = %v", err)
	}
	if !compressed || !pub.IsEqual(w.payment.key.PubKey()) {
		t.Error("signature does not recover to the payment key")
	}
}
