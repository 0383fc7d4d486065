package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// Address types reported in AdditionalAddresses.
const (
	AddressTypePayment  = "payment"
	AddressTypeOrdinals = "ordinals"
)

// BIP44 purposes of the two Bitcoin accounts.
const (
	purposeSegWit  = 84
	purposeTaproot = 86
)

var (
	// ErrUnknownSigningAddress is returned when a PSBT asks for an address
	// the wallet does not own.
	ErrUnknownSigningAddress = errors.New("address not owned by wallet")
	// ErrMissingWitnessUtxo is returned for PSBT inputs without a witness UTXO.
	ErrMissingWitnessUtxo = errors.New("psbt input has no witness utxo")
)

const messageMagic = "Bitcoin Signed Message:\n"

// btcAccount is one key with its address and output script.
type btcAccount struct {
	key      *btcec.PrivateKey
	address  string
	pkScript []byte
	taproot  bool
}

// BitcoinWallet is a locally held Bitcoin wallet with a native SegWit
// payment account and a Taproot ordinals account, like Xverse exposes.
type BitcoinWallet struct {
	id       string
	params   *chaincfg.Params
	payment  btcAccount
	ordinals btcAccount
}

// NewBitcoinWallet derives the payment (m/84'/0'/account'/0/0) and ordinals
// (m/86'/0'/account'/0/0) accounts.
func NewBitcoinWallet(id string, k *Keyring, account uint32) (*BitcoinWallet, error) {
	params := &chaincfg.MainNetParams
	w := &BitcoinWallet{id: id, params: params}

	payKey, err := k.DeriveKey(purposeSegWit, 0, account, 0, 0)
	if err != nil {
		return nil, err
	}
	if w.payment, err = newP2WPKHAccount(payKey, params); err != nil {
		return nil, err
	}

	ordKey, err := k.DeriveKey(purposeTaproot, 0, account, 0, 0)
	if err != nil {
		return nil, err
	}
	if w.ordinals, err = newP2TRAccount(ordKey, params); err != nil {
		return nil, err
	}

	return w, nil
}

func newP2WPKHAccount(key *btcec.PrivateKey, params *chaincfg.Params) (btcAccount, error) {
	pubKeyHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
	if err != nil {
		return btcAccount{}, fmt.Errorf("failed to create P2WPKH address: %w", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return btcAccount{}, err
	}
	return btcAccount{key: key, address: addr.EncodeAddress(), pkScript: pkScript}, nil
}

func newP2TRAccount(key *btcec.PrivateKey, params *chaincfg.Params) (btcAccount, error) {
	taprootKey := txscript.ComputeTaprootKeyNoScript(key.PubKey())
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(taprootKey), params)
	if err != nil {
		return btcAccount{}, fmt.Errorf("failed to create Taproot address: %w", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return btcAccount{}, err
	}
	return btcAccount{key: key, address: addr.EncodeAddress(), pkScript: pkScript, taproot: true}, nil
}

// ID returns the wallet ID.
func (w *BitcoinWallet) ID() string { return w.id }

// Address returns the ordinals address, the primary address Xverse reports.
func (w *BitcoinWallet) Address() string { return w.ordinals.address }

// PaymentAddress returns the native SegWit payment address.
func (w *BitcoinWallet) PaymentAddress() string { return w.payment.address }

func (w *BitcoinWallet) Connector() string { return Connector }

// AdditionalAddresses lists the ordinals and payment addresses.
func (w *BitcoinWallet) AdditionalAddresses() []provider.AdditionalAddress {
	return []provider.AdditionalAddress{
		{
			Address:   w.ordinals.address,
			PublicKey: hex.EncodeToString(schnorr.SerializePubKey(w.ordinals.key.PubKey())),
			Type:      AddressTypeOrdinals,
		},
		{
			Address:   w.payment.address,
			PublicKey: hex.EncodeToString(w.payment.key.PubKey().SerializeCompressed()),
			Type:      AddressTypePayment,
		},
	}
}

func (w *BitcoinWallet) account(address string) (*btcAccount, bool) {
	switch address {
	case w.payment.address:
		return &w.payment, true
	case w.ordinals.address:
		return &w.ordinals, true
	default:
		return nil, false
	}
}

// SignPSBT signs the requested inputs and returns the partially signed
// packet. Inputs are not finalized.
func (w *BitcoinWallet) SignPSBT(ctx context.Context, req *provider.SignPSBTRequest) (*provider.SignPSBTResponse, error) {
	packet, err := psbt.NewFromRawBytes(bytes.NewReader([]byte(req.UnsignedPSBTBase64)), true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse psbt: %w", err)
	}

	tx := packet.UnsignedTx
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range packet.Inputs {
		if in.WitnessUtxo == nil {
			return nil, fmt.Errorf("%w: input %d", ErrMissingWitnessUtxo, i)
		}
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, in.WitnessUtxo)
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, err
	}

	for _, si := range req.SignatureInputs {
		acct, ok := w.account(si.Address)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSigningAddress, si.Address)
		}

		for _, idx := range si.SigningIndexes {
			if idx < 0 || idx >= len(packet.Inputs) {
				return nil, fmt.Errorf("signing index %d out of range", idx)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			in := &packet.Inputs[idx]
			if !bytes.Equal(in.WitnessUtxo.PkScript, acct.pkScript) {
				return nil, fmt.Errorf("input %d is not spendable by %s", idx, si.Address)
			}

			if acct.taproot {
				err = signTaprootInput(in, tx, sigHashes, idx, acct, allowedSighash(req, txscript.SigHashDefault))
			} else {
				err = signSegWitInput(updater, tx, sigHashes, idx, acct, allowedSighash(req, txscript.SigHashAll))
			}
			if err != nil {
				return nil, fmt.Errorf("failed to sign input %d: %w", idx, err)
			}
		}
	}

	signed, err := packet.B64Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode psbt: %w", err)
	}
	return &provider.SignPSBTResponse{SignedPSBT: signed}, nil
}

// allowedSighash picks the first requested sighash type, or def.
func allowedSighash(req *provider.SignPSBTRequest, def txscript.SigHashType) txscript.SigHashType {
	if len(req.AllowedSighash) > 0 {
		return req.AllowedSighash[0]
	}
	return def
}

func signSegWitInput(updater *psbt.Updater, tx *wire.MsgTx, sigHashes *txscript.TxSigHashes, idx int, acct *btcAccount, hashType txscript.SigHashType) error {
	prevOut := updater.Upsbt.Inputs[idx].WitnessUtxo

	sig, err := txscript.RawTxInWitnessSignature(tx, sigHashes, idx, prevOut.Value, prevOut.PkScript, hashType, acct.key)
	if err != nil {
		return err
	}

	_, err = updater.Sign(idx, sig, acct.key.PubKey().SerializeCompressed(), nil, nil)
	return err
}

func signTaprootInput(in *psbt.PInput, tx *wire.MsgTx, sigHashes *txscript.TxSigHashes, idx int, acct *btcAccount, hashType txscript.SigHashType) error {
	sig, err := txscript.RawTxInTaprootSignature(
		tx,
		sigHashes,
		idx,
		in.WitnessUtxo.Value,
		in.WitnessUtxo.PkScript,
		nil, // key-path spend, no script tree
		hashType,
		acct.key,
	)
	if err != nil {
		return err
	}

	in.TaprootKeySpendSig = sig
	in.TaprootInternalKey = schnorr.SerializePubKey(acct.key.PubKey())
	return nil
}

// SignMessage signs message with the payment key using the Bitcoin Signed
// Message scheme and returns the base64 compact signature.
func (w *BitcoinWallet) SignMessage(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sig := ecdsa.SignCompact(w.payment.key, messageHash(message), true)
	return base64.StdEncoding.EncodeToString(sig), nil
}

func messageHash(message string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, message)
	return chainhash.DoubleHashB(buf.Bytes())
}

var _ provider.BitcoinWallet = (*BitcoinWallet)(nil)
