// Package rsapq is a self-contained RSA toolkit: it generates key pairs from
// its own primality test and bit source, issues and verifies self-signed
// certificates, and exposes encryption, signatures and MACs over the raw RSA
// trapdoor.
//
// The primitives are textbook RSA. Encryption has no padding and is
// deterministic, signatures sign a SHA-256 digest reduced modulo floor(n/2)
// when it does not fit below n, and nothing is constant-time. The default
// bit source (MT19937 seeding Blum-Blum-Shub from the clock) is predictable;
// use WithSystemRandom for key material that must not be reproducible.
//
// Basic usage:
//
//	engine, err := rsapq.New(rsapq.WithKeySize(2048), rsapq.WithSystemRandom(nil))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if _, err := engine.GenerateKeys(0); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Issue a self-signed certificate valid for 30 days
//	pem, err := engine.IssueCertificate(ctx, "CN=Test", rsapq.WithValidityDays(30))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(engine.VerifyCertificate(pem, nil)) // true
//
// Stateless functions (Encrypt, Decrypt, Sign, VerifySignature, ComputeMAC,
// VerifyMAC) take keys explicitly and can be used without an engine.
package rsapq
