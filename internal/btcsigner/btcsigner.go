// Package btcsigner generates single-use P2WPKH addresses and builds/signs
// single-input sweep transactions from a WIF-encoded key (spec §4's
// "Bitcoin Signer"). Grounded on the teacher's
// src/chainadapter/bitcoin/{signer,builder,derive}.go: same WIF decode +
// Hash160(pubkey) -> P2WPKH address derivation, same wire.MsgTx assembly,
// but producing a fully signed, broadcast-ready transaction rather than an
// abstract UnsignedTransaction + detached Sign() call, since this module
// has no multi-chain signer indirection to preserve.
package btcsigner

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relayerr"
)

// GeneratedKey is a freshly minted single-use hop key (spec §4.5 "fresh
// hop address per step").
type GeneratedKey struct {
	Address string
	WIF     string
}

// BitcoinSigner is the Engine's view of address generation and sweep
// signing (spec §4's Bitcoin Signer component).
type BitcoinSigner interface {
	// GenerateKey mints a fresh P2WPKH keypair for network.
	GenerateKey(network models.Network) (GeneratedKey, error)

	// AddressFromWIF derives the P2WPKH address controlled by wif, so
	// callers can verify an imported or stored key still controls the
	// address recorded against a hop.
	AddressFromWIF(wif string, network models.Network) (string, error)

	// BuildSweep constructs and signs a single-input-per-UTXO,
	// single-output transaction paying destAddress the sum of utxos minus
	// feeSats (spec §4.6 step 4, GLOSSARY "Sweep"). It returns the signed
	// raw transaction hex, its txid, and the amount actually sent.
	BuildSweep(ctx context.Context, wif string, network models.Network, utxos []chainclient.UTXO, destAddress string, feeSats int64) (rawTxHex string, txid string, amountSats int64, err error)
}

func netParams(network models.Network) (*chaincfg.Params, error) {
	switch network {
	case models.Mainnet:
		return &chaincfg.MainNetParams, nil
	case models.Testnet:
		return &chaincfg.TestNet3Params, nil
	default:
		return nil, relayerr.NewInvalidInputError(fmt.Sprintf("unsupported network: %s", network))
	}
}

// BTCDSigner implements BitcoinSigner using btcsuite/btcd primitives.
type BTCDSigner struct{}

// NewBTCDSigner constructs a BTCDSigner. It holds no state: every
// operation is derived fresh from the WIF key passed in, keeping plaintext
// key material scoped to the single call that needs it (spec §9 "Secret
// lifetime").
func NewBTCDSigner() *BTCDSigner {
	return &BTCDSigner{}
}

func addressForPrivKey(priv *btcec.PrivateKey, params *chaincfg.Params) (btcutil.Address, error) {
	pubKeyHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	return btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
}

// GenerateKey mints a fresh secp256k1 keypair and derives its P2WPKH
// address and WIF encoding.
func (s *BTCDSigner) GenerateKey(network models.Network) (GeneratedKey, error) {
	params, err := netParams(network)
	if err != nil {
		return GeneratedKey{}, err
	}

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return GeneratedKey{}, relayerr.NewFatalError("failed to generate private key", err)
	}

	addr, err := addressForPrivKey(priv, params)
	if err != nil {
		return GeneratedKey{}, relayerr.NewFatalError("failed to derive address", err)
	}

	wif, err := btcutil.NewWIF(priv, params, true)
	if err != nil {
		return GeneratedKey{}, relayerr.NewFatalError("failed to encode WIF", err)
	}

	return GeneratedKey{
		Address: addr.EncodeAddress(),
		WIF:     wif.String(),
	}, nil
}

// AddressFromWIF decodes wif and returns the P2WPKH address it controls.
func (s *BTCDSigner) AddressFromWIF(wif string, network models.Network) (string, error) {
	params, err := netParams(network)
	if err != nil {
		return "", err
	}

	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return "", relayerr.NewDecryptFailedError()
	}

	addr, err := addressForPrivKey(decoded.PrivKey, params)
	if err != nil {
		return "", relayerr.NewFatalError("failed to derive address", err)
	}
	return addr.EncodeAddress(), nil
}

// BuildSweep spends every given utxo into one output at destAddress,
// carrying the whole balance minus feeSats (spec §4.6 step 4). It assumes
// all utxos are controlled by wif, which the caller guarantees by having
// selected them via AddressFromWIF/AddressUTXOs against the same address.
func (s *BTCDSigner) BuildSweep(ctx context.Context, wif string, network models.Network, utxos []chainclient.UTXO, destAddress string, feeSats int64) (string, string, int64, error) {
	params, err := netParams(network)
	if err != nil {
		return "", "", 0, err
	}

	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return "", "", 0, relayerr.NewDecryptFailedError()
	}

	srcAddr, err := addressForPrivKey(decoded.PrivKey, params)
	if err != nil {
		return "", "", 0, relayerr.NewFatalError("failed to derive source address", err)
	}
	srcScript, err := txscript.PayToAddrScript(srcAddr)
	if err != nil {
		return "", "", 0, relayerr.NewFatalError("failed to build source script", err)
	}

	destAddr, err := btcutil.DecodeAddress(destAddress, params)
	if err != nil {
		return "", "", 0, relayerr.NewInvalidInputError(fmt.Sprintf("invalid destination address: %s", destAddress))
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return "", "", 0, relayerr.NewInvalidInputError("failed to build destination script")
	}

	var total int64
	for _, u := range utxos {
		total += u.ValueSats
	}
	amount := total - feeSats
	if amount <= 0 {
		return "", "", 0, relayerr.NewInsufficientBalanceError(
			fmt.Sprintf("balance %d sats does not cover fee %d sats", total, feeSats))
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, u := range utxos {
		txHash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return "", "", 0, relayerr.NewFatalError(fmt.Sprintf("invalid utxo txid: %s", u.TxID), err)
		}
		outPoint := wire.NewOutPoint(txHash, u.Vout)
		tx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
		prevOutFetcher.AddPrevOut(*outPoint, wire.NewTxOut(u.ValueSats, srcScript))
	}
	tx.AddTxOut(wire.NewTxOut(amount, destScript))

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	for i, u := range utxos {
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, u.ValueSats, srcScript,
			txscript.SigHashAll, decoded.PrivKey, true)
		if err != nil {
			return "", "", 0, relayerr.NewFatalError("failed to sign input", err)
		}
		tx.TxIn[i].Witness = witness
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", "", 0, relayerr.NewFatalError("failed to serialize transaction", err)
	}

	return hex.EncodeToString(buf.Bytes()), tx.TxHash().String(), amount, nil
}

var _ BitcoinSigner = (*BTCDSigner)(nil)
