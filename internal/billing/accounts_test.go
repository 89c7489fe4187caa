package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aaane/member-portal/backend/internal/models"
)

func TestCreateAccountFetchesFullRecord(t *testing.T) {
	var createBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/ACCOUNT":
			if err := json.NewDecoder(r.Body).Decode(&createBody); err != nil {
				t.Fatalf("decode create body: %v", err)
			}
			writeResponse(t, w, map[string]any{
				"createResponse": []any{map[string]any{"Id": "acct-5"}},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/ACCOUNT/acct-5":
			writeResponse(t, w, map[string]any{
				"retrieveResponse": []any{map[string]any{
					"Id": "acct-5", "Name": "Jordan Baker", "Status": "ACTIVE",
					"aaa_MemberID": "AAA-12345",
				}},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	account, err := client.CreateAccount(context.Background(), models.NewAccountInput{
		FirstName: "Jordan",
		LastName:  "Baker",
		Email:     "jordan@example.com",
	})
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if account.ID != "acct-5" || account.MemberID != "AAA-12345" {
		t.Fatalf("unexpected account: %+v", account)
	}

	objects, _ := createBody["brmObjects"].([]any)
	if len(objects) != 1 {
		t.Fatalf("expected one brmObject, got %v", createBody)
	}
	obj := objects[0].(map[string]any)
	if obj["Name"] != "Jordan Baker" {
		t.Fatalf("unexpected name: %v", obj["Name"])
	}
	if obj["AccountTypeId"] != defaultAccountTypeID {
		t.Fatalf("unexpected account type: %v", obj["AccountTypeId"])
	}
	// Defaults applied when the input leaves them blank.
	if obj["aaa_MemberAcctType"] != "Primary" || obj["aaa_MembershipBillFrequency"] != "Monthly" {
		t.Fatalf("defaults not applied: %v", obj)
	}
}

func TestCreateAccountRequiresName(t *testing.T) {
	client := NewClient("http://unused", "sess")
	if _, err := client.CreateAccount(context.Background(), models.NewAccountInput{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestSearchAccountsEscapesQuotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		sql, _ := body["sql"].(string)
		if !strings.Contains(sql, "O''Brien") {
			t.Errorf("quote not escaped in sql: %s", sql)
		}
		writeResponse(t, w, map[string]any{
			"queryResponse": []any{map[string]any{"Id": "acct-1", "Name": "Pat O'Brien"}},
		})
	})

	accounts, err := client.SearchAccountsByName(context.Background(), "O'Brien")
	if err != nil {
		t.Fatalf("SearchAccountsByName returned error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != "acct-1" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestGetBillingProfileByAccountID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("queryAnsiSql"); got != "AccountId = 'acct-1'" {
			t.Errorf("unexpected query: %s", got)
		}
		writeResponse(t, w, map[string]any{
			"retrieveResponse": []any{map[string]any{
				"Id": "bp-1", "AccountId": "acct-1",
				"HostedPaymentPageExternalId": "hpp-ext-1",
				"BillingCycle":                "MONTHLY",
			}},
		})
	})

	profile, err := client.GetBillingProfileByAccountID(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetBillingProfileByAccountID returned error: %v", err)
	}
	if profile.HostedPaymentPageExternalID != "hpp-ext-1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.BillingCycle != models.CycleMonthly {
		t.Fatalf("unexpected cycle: %s", profile.BillingCycle)
	}
}
