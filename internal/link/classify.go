// Package link coordinates wallet linking for the swap widget: it classifies
// connected wallets by family, adapts the primary wallet into a signer, keeps
// the linked wallet list, bridges link requests to wallet-added events and
// switches the primary wallet once a freshly linked wallet is queryable.
package link

import (
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// Classify returns the family of w by capability. Families are checked in a
// fixed order (EVM, Bitcoin, Solana) and the first match wins; a wallet that
// matches none, or a nil wallet, is FamilyUnknown.
func Classify(w provider.Wallet) chain.Family {
	switch w.(type) {
	case nil:
		return chain.FamilyUnknown
	case provider.EVMWallet:
		return chain.FamilyEVM
	case provider.BitcoinWallet:
		return chain.FamilyBitcoin
	case provider.SolanaWallet:
		return chain.FamilySolana
	default:
		return chain.FamilyUnknown
	}
}
