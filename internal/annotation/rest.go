package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// restBatchSize is the maximum number of IDs per lookup POST accepted
// by the Ensembl REST API.
const restBatchSize = 1000

// RESTLoader fetches gene annotations from the Ensembl REST API.
// This is useful when no prepared annotation mapping file is available
// for the organism.
type RESTLoader struct {
	baseURL    string
	species    string
	httpClient *http.Client
}

// NewRESTLoader creates a new REST API loader for an organism.
// organism accepts the common shortcuts "human" and "mouse" as well as
// full Ensembl species names such as "homo_sapiens".
func NewRESTLoader(organism string) *RESTLoader {
	species := organism
	switch organism {
	case "human", "":
		species = "homo_sapiens"
	case "mouse":
		species = "mus_musculus"
	}

	return &RESTLoader{
		baseURL: "https://rest.ensembl.org",
		species: species,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchTable fetches annotations for the given gene IDs in batches via
// POST /lookup/id. Gene IDs unknown to the API are simply absent from
// the returned table.
func (l *RESTLoader) FetchTable(geneIDs []string) (Table, error) {
	table := make(Table)
	for start := 0; start < len(geneIDs); start += restBatchSize {
		end := start + restBatchSize
		if end > len(geneIDs) {
			end = len(geneIDs)
		}
		if err := l.lookupBatch("/lookup/id", lookupIDRequest{IDs: geneIDs[start:end]}, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// FetchBySymbol fetches annotations for gene symbols via
// POST /lookup/symbol/{species}. The returned table is keyed by the
// queried symbol so it aligns with symbol-keyed count matrices.
func (l *RESTLoader) FetchBySymbol(symbols []string) (Table, error) {
	path := "/lookup/symbol/" + l.species
	table := make(Table)
	for start := 0; start < len(symbols); start += restBatchSize {
		end := start + restBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		if err := l.lookupBatch(path, lookupSymbolRequest{Symbols: symbols[start:end]}, table); err != nil {
			return nil, err
		}
	}
	for key, r := range table {
		// Lookup by symbol keys the response by symbol; keep that key
		// as the table's gene ID so matrix rows resolve.
		r.GeneID = key
	}
	return table, nil
}

// FetchEntrez fills in Entrez IDs for all records in the table from the
// per-gene xrefs endpoint. Fetch failures leave the Entrez ID empty.
func (l *RESTLoader) FetchEntrez(table Table) {
	for _, r := range table {
		if r.EntrezID != "" {
			continue
		}
		url := fmt.Sprintf("%s/xrefs/id/%s?external_db=EntrezGene;content-type=application/json",
			l.baseURL, r.GeneID)

		if resp, err := l.httpClient.Get(url); err == nil {
			func() {
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return
				}
				var xrefs []restXref
				if json.NewDecoder(resp.Body).Decode(&xrefs) != nil {
					return
				}
				for _, x := range xrefs {
					if x.DBName == "EntrezGene" && x.PrimaryID != "" {
						r.EntrezID = x.PrimaryID
						return
					}
				}
			}()
		}
	}
}

type lookupIDRequest struct {
	IDs []string `json:"ids"`
}

type lookupSymbolRequest struct {
	Symbols []string `json:"symbols"`
}

func (l *RESTLoader) lookupBatch(path string, payload any, table Table) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode lookup request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("REST API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("REST API error %d: %s", resp.StatusCode, string(msg))
	}

	// Unknown IDs come back as null entries; skip them so lookups never
	// invent mappings.
	var genes map[string]*restGene
	if err := json.NewDecoder(resp.Body).Decode(&genes); err != nil {
		return fmt.Errorf("decode REST response: %w", err)
	}

	for key, rg := range genes {
		if rg == nil {
			continue
		}
		r := rg.toRecord()
		if r != nil {
			table[key] = r
		}
	}
	return nil
}

// restGene represents the JSON response from the Ensembl REST API
// lookup endpoints.
type restGene struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Biotype     string `json:"biotype"`
	ObjectType  string `json:"object_type"`
	Species     string `json:"species"`
}

func (rg *restGene) toRecord() *Record {
	if rg.ID == "" {
		return nil
	}

	return &Record{
		GeneID:      rg.ID,
		Symbol:      rg.DisplayName,
		Description: rg.Description,
		Biotype:     rg.Biotype,
	}
}

// restXref represents a cross-reference entry from the xrefs endpoint.
type restXref struct {
	PrimaryID string `json:"primary_id"`
	DBName    string `json:"dbname"`
}
