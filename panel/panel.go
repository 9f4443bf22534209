// Package panel builds reference panels of control and case medians from
// fragment-end trinucleotide proportion and diversity tables. A panel is a
// baseline: each row names a feature and gives its median across controls and
// across cases.
package panel

import (
	"context"
	"log"

	"cloud.google.com/go/storage"
)

// Create loads the inputs, reduces each cohort to its median vector and writes
// the resulting panel to output.
func Create(ctx context.Context, in Inputs, labels Labels, output string, client *storage.Client) (Panel, error) {
	tables, err := Load(ctx, in, labels, client)
	if err != nil {
		return nil, err
	}
	log.Printf("Read %s inputs\n", tables.Mode)

	ctr, cas, err := Aggregate(tables)
	if err != nil {
		return nil, err
	}

	p := Build(ctr, cas)
	log.Printf("%d features with control medians, %d with case medians, %d in both\n", ctr.Len(), cas.Len(), len(p))

	if err := Write(ctx, output, client, p); err != nil {
		return nil, err
	}

	return p, nil
}
