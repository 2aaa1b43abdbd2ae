package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Pretty print JSON helper
func prettyPrint(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}

func (c *client) send(method, path string, body interface{}, out interface{}) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return resp.StatusCode, fmt.Errorf("%d %s", env.Code, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func must(step string, status int, err error) {
	if err != nil {
		color.Red("%s failed: %v", step, err)
		os.Exit(1)
	}
	color.Green("%s: %d", step, status)
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api", "API base URL")
	wait := flag.Duration("wait", 60*time.Second, "how long to wait for the assistant reply")
	flag.Parse()

	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: 10 * time.Second}}
	mobile := fmt.Sprintf("98%08d", rand.Intn(100000000))

	color.Cyan("Starting chat smoke test against %s\n", *baseURL)

	color.Yellow("\n1. Signup %s", mobile)
	status, err := c.send(http.MethodPost, "/auth/signup", map[string]string{"mobileNumber": mobile}, nil)
	must("Signup", status, err)

	color.Yellow("\n2. Send OTP")
	var otp struct {
		Otp string `json:"otp"`
	}
	status, err = c.send(http.MethodPost, "/auth/send-otp", map[string]string{"mobileNumber": mobile}, &otp)
	must("Send OTP", status, err)
	if otp.Otp == "" {
		color.Red("OTP not returned, run the API with GO_ENV=development")
		os.Exit(1)
	}

	color.Yellow("\n3. Verify OTP")
	var auth struct {
		Token string `json:"token"`
	}
	status, err = c.send(http.MethodPost, "/auth/verify-otp", map[string]string{"mobileNumber": mobile, "otp": otp.Otp}, &auth)
	must("Verify OTP", status, err)
	c.token = auth.Token

	color.Yellow("\n4. Create chatroom")
	var chatroom struct {
		Id string `json:"id"`
	}
	status, err = c.send(http.MethodPost, "/chatroom", map[string]string{"title": "Smoke test"}, &chatroom)
	must("Create chatroom", status, err)

	color.Yellow("\n5. Send message")
	var sent struct {
		JobId string `json:"jobId"`
	}
	status, err = c.send(http.MethodPost, "/chatroom/"+chatroom.Id+"/message", map[string]string{"content": "Say hello in five words."}, &sent)
	must("Send message", status, err)
	if status != http.StatusAccepted {
		color.Red("Expected 202, got %d", status)
		os.Exit(1)
	}

	color.Yellow("\n6. Waiting for reply (job %s)", sent.JobId)
	deadline := time.Now().Add(*wait)
	for {
		var detail struct {
			Messages []json.RawMessage `json:"messages"`
		}
		_, err := c.send(http.MethodGet, "/chatroom/"+chatroom.Id, nil, &detail)
		if err == nil && len(detail.Messages) >= 2 {
			color.Green("Reply stored")
			prettyPrint(detail.Messages[len(detail.Messages)-1])
			break
		}
		if time.Now().After(deadline) {
			color.Red("No reply after %s", *wait)
			os.Exit(1)
		}
		time.Sleep(time.Second)
	}

	color.Yellow("\n7. Subscription status")
	var sub json.RawMessage
	status, err = c.send(http.MethodGet, "/subscription/status", nil, &sub)
	must("Subscription status", status, err)
	prettyPrint(sub)

	color.Cyan("\nSmoke test complete")
}
