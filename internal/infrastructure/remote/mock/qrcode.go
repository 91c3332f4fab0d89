package mock

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// qrPayload is what a peer's scanner reads: the user id plus a rotating nonce.
func qrPayload(userID, nonce string) string {
	return fmt.Sprintf("pich://connect/%s?n=%s", userID, nonce)
}

func encodeQR(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func (b *Backend) FetchQRCode(ctx context.Context) (string, error) {
	acc, err := b.protected(ctx, "qrcode.fetch")
	if err != nil {
		return "", err
	}
	defer b.mu.Unlock()

	return encodeQR(qrPayload(acc.profile.ID, acc.qrNonce))
}

// RefreshQRCode rotates the nonce so previously shared codes change.
func (b *Backend) RefreshQRCode(ctx context.Context) (string, error) {
	acc, err := b.protected(ctx, "qrcode.refresh")
	if err != nil {
		return "", err
	}
	defer b.mu.Unlock()

	acc.qrNonce = uuid.NewString()
	return encodeQR(qrPayload(acc.profile.ID, acc.qrNonce))
}
