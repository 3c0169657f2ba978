package game

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestClientPostInjectsKeyAndHeaders(t *testing.T) {
	var gotKey, gotHeader, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotKey = r.PostFormValue("key")
		gotHeader = r.Header.Get("X-Requested-With")
		if c, err := r.Cookie("PHPSESSID"); err == nil {
			gotCookie = c.Value
		}
		_, _ = w.Write([]byte(`{"status":true,"msg":"ok","data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", WithSessionCookie("sess-1"))
	if _, err := client.Post(context.Background(), "m=Food&a=get_food", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "secret-key" {
		t.Errorf("key = %q, want secret-key", gotKey)
	}
	if gotHeader != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", gotHeader)
	}
	if gotCookie != "sess-1" {
		t.Errorf("session cookie = %q, want sess-1", gotCookie)
	}
}

func TestClientPostBusinessRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"msg":"你选择的食材数量不足<br/>请重新选择"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	_, err := client.Post(context.Background(), "m=Food&a=exchange", nil)
	if !IsBusiness(err) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if !IsInsufficientStock(err.Error()) {
		t.Errorf("message %q should read as insufficient stock", err.Error())
	}
	// The <br/> markup is stripped before the message surfaces.
	if want := "你选择的食材数量不足 请重新选择"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestClientPostRetriesNetworkFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":true,"msg":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", WithMaxRetries(2))
	if _, err := client.Post(context.Background(), "m=Food&a=get_food", nil); err != nil {
		t.Fatalf("expected recovery on retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientPostGivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", WithMaxRetries(2))
	_, err := client.Post(context.Background(), "m=Food&a=get_food", nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if IsBusiness(err) {
		t.Errorf("transport failure must not be a BusinessError: %v", err)
	}
}

func TestCupboardSnapshotAggregatesPages(t *testing.T) {
	// Tier 1 has two pages, every other tier is empty.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		tier := r.PostFormValue("type")
		page := r.PostFormValue("page")

		switch {
		case tier == "1" && page == "1":
			_, _ = w.Write([]byte(`{"status":true,"data":[
				{"food_code":"101","food_name":"radish","num":"3","is_lock":"0"},
				{"food_code":"102","food_name":"cabbage","num":"2","is_lock":"0"}]}`))
		case tier == "1" && page == "2":
			_, _ = w.Write([]byte(`{"status":true,"data":[
				{"food_code":"103","food_name":"pork","num":"5","is_lock":"1"}]}`))
		default:
			_, _ = w.Write([]byte(`{"status":true,"data":[]}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	cupboard := NewCupboard(client, nil, zerolog.Nop())

	inventory, err := cupboard.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"101": 3, "102": 2, "103": 5}
	if len(inventory) != len(want) {
		t.Fatalf("inventory = %v, want %v", inventory, want)
	}
	for code, n := range want {
		if inventory[code] != n {
			t.Errorf("inventory[%s] = %d, want %d", code, inventory[code], n)
		}
	}
}

func TestFriendsExchangeBusinessRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("res_id") != "42" || r.PostFormValue("friend_code") != "201" ||
			r.PostFormValue("my_code") != "202" {
			t.Errorf("unexpected payload: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"status":false,"msg":"对方橱柜已满"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	friends := NewFriends(client, zerolog.Nop())

	ok, msg, err := friends.Exchange(context.Background(), "42", "201", "202")
	if err != nil {
		t.Fatalf("business rejection must not be an error: %v", err)
	}
	if ok {
		t.Error("exchange should be reported as rejected")
	}
	if msg == "" {
		t.Error("rejection message should be passed through")
	}
}

func TestMarketBuyFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.URL.RawQuery == "g=Res&m=Food&a=get_food" {
			_, _ = w.Write([]byte(`{"status":true,"data":[
				{"code":"101","name":"radish","price":"100"},
				{"code":"102","name":"cabbage","price":"100"}]}`))
			return
		}
		if r.PostFormValue("code") != "101" || r.PostFormValue("num") != "3" {
			t.Errorf("unexpected buy payload: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"status":true,"msg":"购买成功"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	market := NewMarket(client, zerolog.Nop())

	ref, err := market.BuyFirst(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Code != "101" || ref.Tier != 1 {
		t.Errorf("ref = %+v, want code 101 tier 1", ref)
	}
}

func TestPurchaserBatchesCupboardBuys(t *testing.T) {
	var buys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		buys = append(buys, r.PostFormValue("num"))
		_, _ = w.Write([]byte(`{"status":true,"msg":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	cupboard := NewCupboard(client, nil, zerolog.Nop())
	buyer := NewPurchaser(NewMarket(client, zerolog.Nop()), cupboard, zerolog.Nop())

	ref, ok, err := buyer.Purchase(context.Background(), 2, 23)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("purchase should succeed")
	}
	if !ref.IsZero() {
		t.Errorf("random buys have unknown identity, got %+v", ref)
	}

	want := []string{"10", "10", "3"}
	if len(buys) != len(want) {
		t.Fatalf("buy batches = %v, want %v", buys, want)
	}
	for i := range want {
		if buys[i] != want[i] {
			t.Errorf("batch %d = %s, want %s", i, buys[i], want[i])
		}
	}
}
