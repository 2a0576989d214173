package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"onchainlotto/internal/codec"
	"onchainlotto/internal/lottery"
	"onchainlotto/internal/state"
)

const txAuthDomainV0 = "lotto/tx/v0"

func txAuthSignBytesV0(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return ErrUnauthorized.Wrap("missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

func verifyEnvelope(env codec.TxEnvelope, pub []byte) error {
	msg := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

// requireRegisterAccountAuth checks a self-signed key registration: the
// envelope must be signed by the key being registered.
func requireRegisterAccountAuth(env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return ErrInvalidTx.Wrap("missing account")
	}
	if lottery.IsEscrowAccount(msg.Account) {
		return ErrUnauthorized.Wrapf("account %q is a reserved escrow account", msg.Account)
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return ErrInvalidTx.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	return verifyEnvelope(env, msg.PubKey)
}

// requireAccountAuth checks that account signed env with its registered key.
// This is the identity check every lottery operation relies on.
func requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if st == nil {
		return ErrInvalidTx.Wrap("state is nil")
	}
	if account == "" {
		return ErrInvalidTx.Wrap("missing account")
	}
	// Escrows are moved by pool operations only, never by a signer.
	if lottery.IsEscrowAccount(account) {
		return ErrUnauthorized.Wrapf("account %q is a reserved escrow account", account)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub := st.AccountKeys[account]
	if len(pub) != ed25519.PublicKeySize {
		return ErrUnauthorized.Wrapf("account %q missing pubKey (auth/register_account required)", account)
	}
	return verifyEnvelope(env, pub)
}

// consumeNonce enforces strictly increasing numeric nonces per signer.
func consumeNonce(st *state.State, env codec.TxEnvelope) error {
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return ErrInvalidNonce.Wrapf("invalid tx.nonce %q", env.Nonce)
	}
	if last, ok := st.NonceMax[env.Signer]; ok && n <= last {
		return ErrInvalidNonce.Wrapf("replayed tx.nonce %d (last accepted %d)", n, last)
	}
	st.NonceMax[env.Signer] = n
	return nil
}
