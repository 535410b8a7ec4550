package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Fires concurrent claims at a single free slot and reports how many were
// accepted. Exactly one should win; more than one means the conflict guard
// regressed.
func main() {
	baseURL := flag.String("base", "http://localhost:8080", "API base URL")
	date := flag.String("date", time.Now().Format("2006-01-02"), "target date")
	workers := flag.Int("n", 20, "concurrent booking attempts")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 10 * time.Second}

	slotID, err := firstFreeSlot(client, *baseURL, *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "find free slot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("targeting slot %s on %s with %d concurrent claims\n", slotID, *date, *workers)

	var wg sync.WaitGroup
	results := make(chan int, *workers)

	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := attemptBooking(client, *baseURL, slotID, *date)
			if err != nil {
				fmt.Fprintf(os.Stderr, "booking attempt: %v\n", err)
				results <- 0
				return
			}
			results <- status
		}()
	}
	wg.Wait()
	close(results)

	counts := make(map[int]int)
	for status := range results {
		counts[status]++
	}

	fmt.Printf("done in %s\n", time.Since(start))
	for status, n := range counts {
		fmt.Printf("  status %d: %d\n", status, n)
	}

	if counts[http.StatusOK] > 1 {
		fmt.Println("DOUBLE BOOKING DETECTED")
		os.Exit(1)
	}
	fmt.Println("ok: at most one claim won")
}

func firstFreeSlot(client *http.Client, baseURL, date string) (string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/slots?date=%s", baseURL, date))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list slots returned %d", resp.StatusCode)
	}

	var slots []struct {
		SlotID string `json:"slotId"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return "", err
	}

	for _, s := range slots {
		if s.Status == "free" {
			return s.SlotID, nil
		}
	}
	return "", fmt.Errorf("no free slot on %s", date)
}

func attemptBooking(client *http.Client, baseURL, slotID, date string) (int, error) {
	body, err := json.Marshal(map[string]string{
		"slotId":    slotID,
		"date":      date,
		"name":      gofakeit.Name(),
		"phone":     gofakeit.Phone(),
		"visitType": "first",
	})
	if err != nil {
		return 0, err
	}

	resp, err := client.Post(baseURL+"/api/bookings", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
