package auth

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// sessionServerURL is Mojang's "has this player joined" endpoint, queried
// once the client has replied to the encryption request, mirroring
// original_source/src/auth/mod.rs::has_joined.
const sessionServerURL = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

// ErrNotJoined is returned when Mojang's session service does not recognize
// the session (a non-2xx response), meaning the client's claimed identity
// could not be verified.
var ErrNotJoined = errors.New("auth: session service did not recognize this session")

type hasJoinedResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name      string `json:"name"`
		Value     string `json:"value"`
		Signature string `json:"signature"`
	} `json:"properties"`
}

// HasJoined verifies an online-mode login against Mojang's session service
// and returns the authoritative GameProfile on success.
func HasJoined(name, serverID string, secret []byte, pub *rsa.PublicKey, clientIP string) (*GameProfile, error) {
	hash, err := ServerHash(serverID, secret, pub)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("username", name)
	q.Set("serverId", hash)
	if clientIP != "" {
		q.Set("ip", clientIP)
	}
	uri := sessionServerURL + "?" + q.Encode()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)

	client := &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 5 * time.Second}
	if err := client.Do(req, resp); err != nil {
		return nil, fmt.Errorf("session service request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, ErrNotJoined
	}

	var parsed hasJoinedResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parse session service response: %w", err)
	}

	id, err := uuid.Parse(parsed.ID)
	if err != nil {
		// Mojang returns undashed UUIDs; retry with dashes inserted.
		id, err = uuid.Parse(insertDashes(parsed.ID))
		if err != nil {
			return nil, fmt.Errorf("parse profile id %q: %w", parsed.ID, err)
		}
	}

	profile := &GameProfile{ID: id, Name: parsed.Name}
	for _, p := range parsed.Properties {
		profile.Properties = append(profile.Properties, Property{Name: p.Name, Value: p.Value, Signature: p.Signature})
	}
	return profile, nil
}

func insertDashes(s string) string {
	if len(s) != 32 {
		return s
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
