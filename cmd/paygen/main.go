package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/alovak/cardflow-gateway/internal/cardgen"
	"github.com/alovak/cardflow-gateway/internal/expiry"
	"github.com/alovak/cardflow-gateway/internal/gatewayclient"
)

var (
	flagBIN      = flag.String("bin", "222240", "6/8-digit BIN prefix")
	flagLength   = flag.Int("length", 16, "card number length (14..19)")
	flagOutcome  = flag.String("outcome", "authorize", "simulated bank outcome: authorize|decline|unavailable|luhn")
	flagGateway  = flag.String("gateway", "http://127.0.0.1:9090", "gateway base URL")
	flagCurrency = flag.String("currency", "GBP", "ISO 4217 currency code")
	flagAmount   = flag.Int64("amount", 100, "amount in minor units")
	flagCVV      = flag.Int("cvv", 123, "card verification value")
	flagYears    = flag.Int("years", 3, "validity years from now")
	flagShowOnly = flag.Bool("print", false, "print JSON only, do not POST")
	flagVerbose  = flag.Bool("verbose", false, "print full card number (otherwise masked)")
	flagTimeout  = flag.Duration("timeout", 60*time.Second, "overall request timeout")
)

func main() {
	flag.Parse()
	must(cardgen.ValidateBIN(*flagBIN))

	lastDigit, err := lastDigitFor(*flagOutcome)
	must(err)

	pan := must1(cardgen.GeneratePAN(*flagBIN, *flagLength, lastDigit))
	must(checkPAN(pan, lastDigit))
	exp := expiry.After(time.Now(), *flagYears)

	req := models.PaymentRequest{
		CardNumber:  pan,
		ExpiryMonth: exp.Month,
		ExpiryYear:  exp.Year,
		Currency:    strings.TrimSpace(*flagCurrency),
		Amount:      *flagAmount,
		CVV:         *flagCVV,
	}

	printPAN := cardgen.MaskPAN(pan)
	if *flagVerbose {
		printPAN = pan + "   (WARNING: printing full PAN)"
	}
	fmt.Printf("PAN: %s\nEXP(card-face): %s  EXP(bank): %s\n", printPAN, expiry.CardFace(exp.Month, exp.Year), expiry.BankFormat(exp.Month, exp.Year))

	if *flagShowOnly {
		enc, _ := json.MarshalIndent(req, "", "  ")
		fmt.Println(string(enc))
		return
	}

	// retries on the gateway side can take 14s before the answer arrives
	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	cli := gatewayclient.New(*flagGateway, &http.Client{})
	res := must1(cli.CreatePayment(ctx, req))

	switch {
	case res.Payment != nil:
		fmt.Printf("HTTP %d: payment %s %s (last four %04d)\n", res.StatusCode, res.Payment.ID, res.Payment.Status, res.Payment.CardNumberLastFour)
	case res.Rejected != nil:
		fmt.Printf("HTTP %d: %s\n", res.StatusCode, res.Rejected.Message)
		for _, e := range res.Rejected.Errors {
			fmt.Printf("  - %s\n", e)
		}
	default:
		fmt.Printf("HTTP %d: %s\n", res.StatusCode, res.Message)
	}
}

// lastDigitFor picks the final card digit that makes the bank simulator produce outcome.
// "luhn" returns -1 so the generated number carries a real check digit.
func lastDigitFor(outcome string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "authorize", "authorized":
		return 7, nil
	case "decline", "declined":
		return 2, nil
	case "unavailable":
		return 0, nil
	case "luhn":
		return -1, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q", outcome)
	}
}

// checkPAN confirms that a number generated without a forced last digit passes the Luhn check.
func checkPAN(pan string, lastDigit int) error {
	if lastDigit < 0 && !cardgen.LuhnValid(pan) {
		return fmt.Errorf("generated card %s fails the Luhn check", cardgen.MaskPAN(pan))
	}
	return nil
}

func must(err error) {
	if err != nil {
		fail("%v", err)
	}
}
func must1[T any](v T, err error) T {
	if err != nil {
		fail("%v", err)
	}
	return v
}
func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
