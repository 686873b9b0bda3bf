package popgen

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// StoreOptions configures a Population store. The backend is a
// configuration flag, not a different type: callers use the same
// interface whether the data lives in process memory or in a file.
type StoreOptions struct {
	Path     string // SQLite file path; ignored when InMemory is set
	InMemory bool
	Writable bool

	// Metadata is required when creating a writable store. When opening
	// an existing store for reads, a non-nil Metadata is validated
	// against the store's recorded metadata and a mismatch is fatal.
	Metadata GenomeMetadata
}

// Population persists genome metadata, one master list per chromosome and
// per-sample genotype sets. Master lists are write-once; sample genotypes
// are appended one sample at a time, streamed rather than buffered. Once
// closed (or opened read-only) every write fails with ErrStoreReadOnly.
type Population struct {
	backend  storeBackend
	meta     GenomeMetadata
	runID    string
	writable bool

	masterLen map[int]int // chromosome -> frozen master list length
}

// OpenPopulation creates or opens a population store.
func OpenPopulation(opts StoreOptions) (*Population, error) {
	var backend storeBackend
	var err error
	if opts.InMemory {
		backend = newMemBackend()
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("population store: file backend requires a path")
		}
		backend, err = newSQLiteBackend(opts.Path, opts.Writable)
		if err != nil {
			return nil, err
		}
	}

	p := &Population{
		backend:   backend,
		writable:  opts.Writable,
		masterLen: make(map[int]int),
	}
	if opts.Writable {
		if len(opts.Metadata) == 0 {
			return nil, fmt.Errorf("population store: writable store requires genome metadata")
		}
		p.meta = opts.Metadata
		p.runID = uuid.NewString()
		if err := backend.putMetadata(opts.Metadata, p.runID); err != nil {
			return nil, err
		}
		return p, nil
	}

	meta, runID, err := backend.getMetadata()
	if err != nil {
		return nil, err
	}
	p.meta, p.runID = meta, runID
	if opts.Metadata != nil {
		if err := meta.Validate(opts.Metadata); err != nil {
			return nil, err
		}
	}
	for chrom := 1; chrom <= len(meta); chrom++ {
		n, err := backend.masterListLen(chrom)
		if err != nil {
			return nil, err
		}
		if n >= 0 {
			p.masterLen[chrom] = n
		}
	}
	return p, nil
}

// Metadata returns the store's genome metadata.
func (p *Population) Metadata() GenomeMetadata {
	return p.meta
}

// RunID returns the identifier stamped when the store was created.
func (p *Population) RunID() string {
	return p.runID
}

// SetMasterList freezes list and records it as chromosome chrom's
// catalogue. Write-once: a second call for the same chromosome fails.
func (p *Population) SetMasterList(chrom int, list *MasterVariantList) error {
	if !p.writable {
		return fmt.Errorf("set master list chrom %d: %w", chrom, ErrStoreReadOnly)
	}
	if _, ok := p.masterLen[chrom]; ok {
		return fmt.Errorf("chrom %d: %w", chrom, ErrMasterListFrozen)
	}
	list.Freeze()
	if err := p.backend.putMasterList(chrom, list); err != nil {
		return err
	}
	p.masterLen[chrom] = list.Len()
	return nil
}

// AddSampleChromosome appends one sample's genotype for one chromosome.
// The chromosome's master list must already be set, and every genotype
// index must reference a valid master list entry.
func (p *Population) AddSampleChromosome(chrom int, sampleName string, gt SampleGenotype) error {
	if !p.writable {
		return fmt.Errorf("add sample %s chrom %d: %w", sampleName, chrom, ErrStoreReadOnly)
	}
	n, ok := p.masterLen[chrom]
	if !ok {
		return fmt.Errorf("chrom %d: %w", chrom, ErrNoMasterList)
	}
	for _, e := range gt {
		if e.Index < 0 || e.Index >= int64(n) {
			return fmt.Errorf("chrom %d sample %s index %d (list length %d): %w",
				chrom, sampleName, e.Index, n, ErrIndexOutOfRange)
		}
	}
	return p.backend.appendSample(chrom, sampleName, gt)
}

// GetVariantMasterList returns chromosome chrom's frozen master list.
func (p *Population) GetVariantMasterList(chrom int) (*MasterVariantList, error) {
	return p.backend.getMasterList(chrom)
}

// GetSampleVariantListForChromosome resolves a sample's genotype for one
// chromosome into variant records. With ignoreZygosity the zygosity slice
// is nil and each carried variant appears exactly once.
func (p *Population) GetSampleVariantListForChromosome(chrom int, sampleName string, ignoreZygosity bool) ([]VariantRecord, []Zygosity, error) {
	ml, err := p.backend.getMasterList(chrom)
	if err != nil {
		return nil, nil, err
	}
	gt, err := p.backend.getSample(chrom, sampleName)
	if err != nil {
		return nil, nil, err
	}
	variants := make([]VariantRecord, len(gt))
	for i, e := range gt {
		variants[i] = ml.Variants[e.Index]
	}
	if ignoreZygosity {
		return variants, nil, nil
	}
	zyg := make([]Zygosity, len(gt))
	for i, e := range gt {
		zyg[i] = e.GT
	}
	return variants, zyg, nil
}

// GetSampleGenotype returns a sample's raw genotype entries for one
// chromosome, in the sampling engine's insertion order.
func (p *Population) GetSampleGenotype(chrom int, sampleName string) (SampleGenotype, error) {
	return p.backend.getSample(chrom, sampleName)
}

// GetSampleNames returns the names of all stored samples, sorted.
func (p *Population) GetSampleNames() ([]string, error) {
	return p.backend.sampleNames()
}

// PrettyPrintSummary renders per-chromosome catalogue sizes and, for the
// given samples (all samples if nil), per-sample variant counts.
func (p *Population) PrettyPrintSummary(sampleNames []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Population store (run %s)\n", p.runID)
	fmt.Fprintf(&b, "%d chromosomes\n", len(p.meta))
	for chrom := 1; chrom <= len(p.meta); chrom++ {
		md := p.meta[chrom-1]
		n := 0
		if ml, err := p.backend.getMasterList(chrom); err == nil {
			n = ml.Len()
		}
		fmt.Fprintf(&b, "  chrom %d (%s, %d bp): %d variants\n", chrom, md.SeqID, md.SeqLen, n)
	}
	if sampleNames == nil {
		var err error
		sampleNames, err = p.backend.sampleNames()
		if err != nil {
			return "", err
		}
	}
	for _, name := range sampleNames {
		total := 0
		for chrom := 1; chrom <= len(p.meta); chrom++ {
			gt, err := p.backend.getSample(chrom, name)
			if err != nil {
				continue
			}
			total += len(gt)
		}
		fmt.Fprintf(&b, "  sample %s: %d variants\n", name, total)
	}
	return b.String(), nil
}

// IndelHistogram counts indel lengths in [-maxIndel, maxIndel] for one
// chromosome, over the master list when sampleName is empty, else over
// that sample's carried variants. Result index i corresponds to length
// i - maxIndel.
func (p *Population) IndelHistogram(chrom int, sampleName string, maxIndel int) ([]int, error) {
	var variants []VariantRecord
	if sampleName == "" {
		ml, err := p.backend.getMasterList(chrom)
		if err != nil {
			return nil, err
		}
		variants = ml.Variants
	} else {
		var err error
		variants, _, err = p.GetSampleVariantListForChromosome(chrom, sampleName, true)
		if err != nil {
			return nil, err
		}
	}

	lengths := make([]float64, 0, len(variants))
	for _, v := range variants {
		l := v.IndelLen()
		if l < -maxIndel || l > maxIndel {
			continue
		}
		lengths = append(lengths, float64(l))
	}
	sort.Float64s(lengths)

	dividers := make([]float64, 2*maxIndel+2)
	for i := range dividers {
		dividers[i] = float64(i-maxIndel) - 0.5
	}
	counts := stat.Histogram(nil, dividers, lengths, nil)

	out := make([]int, len(counts))
	for i, c := range counts {
		out[i] = int(c)
	}
	return out, nil
}

// Close flushes the store. A closed store rejects further writes; read
// queries stay valid.
func (p *Population) Close() error {
	p.writable = false
	return p.backend.close()
}

// storeBackend is the storage contract shared by the in-memory and
// SQLite backends.
type storeBackend interface {
	putMetadata(meta GenomeMetadata, runID string) error
	getMetadata() (GenomeMetadata, string, error)
	putMasterList(chrom int, ml *MasterVariantList) error
	getMasterList(chrom int) (*MasterVariantList, error)
	masterListLen(chrom int) (int, error) // -1 when unset
	appendSample(chrom int, sampleName string, gt SampleGenotype) error
	getSample(chrom int, sampleName string) (SampleGenotype, error)
	sampleNames() ([]string, error)
	close() error
}

// === in-memory backend ===

type memBackend struct {
	meta    GenomeMetadata
	runID   string
	lists   map[int]*MasterVariantList
	samples map[int]map[string]SampleGenotype
}

func newMemBackend() *memBackend {
	return &memBackend{
		lists:   make(map[int]*MasterVariantList),
		samples: make(map[int]map[string]SampleGenotype),
	}
}

func (b *memBackend) putMetadata(meta GenomeMetadata, runID string) error {
	b.meta, b.runID = meta, runID
	return nil
}

func (b *memBackend) getMetadata() (GenomeMetadata, string, error) {
	if b.meta == nil {
		return nil, "", fmt.Errorf("in-memory store has no metadata")
	}
	return b.meta, b.runID, nil
}

func (b *memBackend) putMasterList(chrom int, ml *MasterVariantList) error {
	b.lists[chrom] = ml
	return nil
}

func (b *memBackend) getMasterList(chrom int) (*MasterVariantList, error) {
	ml, ok := b.lists[chrom]
	if !ok {
		return nil, fmt.Errorf("chrom %d: %w", chrom, ErrNoMasterList)
	}
	return ml, nil
}

func (b *memBackend) masterListLen(chrom int) (int, error) {
	ml, ok := b.lists[chrom]
	if !ok {
		return -1, nil
	}
	return ml.Len(), nil
}

func (b *memBackend) appendSample(chrom int, sampleName string, gt SampleGenotype) error {
	if b.samples[chrom] == nil {
		b.samples[chrom] = make(map[string]SampleGenotype)
	}
	b.samples[chrom][sampleName] = gt
	return nil
}

func (b *memBackend) getSample(chrom int, sampleName string) (SampleGenotype, error) {
	gt, ok := b.samples[chrom][sampleName]
	if !ok {
		return nil, fmt.Errorf("chrom %d has no sample %q", chrom, sampleName)
	}
	return gt, nil
}

func (b *memBackend) sampleNames() ([]string, error) {
	seen := map[string]bool{}
	for _, byName := range b.samples {
		for name := range byName {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *memBackend) close() error { return nil }

// === SQLite backend ===

const storeSchema = `
CREATE TABLE IF NOT EXISTS genome_metadata (
	chrom   INTEGER PRIMARY KEY,
	seq_id  TEXT NOT NULL,
	seq_len INTEGER NOT NULL,
	seq_md5 TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS master_list (
	chrom INTEGER NOT NULL,
	idx   INTEGER NOT NULL,
	pos   INTEGER NOT NULL,
	stop  INTEGER NOT NULL,
	ref   TEXT NOT NULL,
	alt   TEXT NOT NULL,
	p     REAL NOT NULL,
	PRIMARY KEY (chrom, idx)
);
CREATE TABLE IF NOT EXISTS sample_genotype (
	chrom       INTEGER NOT NULL,
	sample_name TEXT NOT NULL,
	ord         INTEGER NOT NULL,
	idx         INTEGER NOT NULL,
	gt          INTEGER NOT NULL,
	PRIMARY KEY (chrom, sample_name, ord)
);`

type sqliteBackend struct {
	db *sqlx.DB
}

func newSQLiteBackend(path string, writable bool) (*sqliteBackend, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening population store %s: %w", path, err)
	}
	if writable {
		if _, err := db.Exec(storeSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating population store schema: %w", err)
		}
	}
	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) putMetadata(meta GenomeMetadata, runID string) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, md := range meta {
		if _, err := tx.Exec(
			`INSERT INTO genome_metadata (chrom, seq_id, seq_len, seq_md5) VALUES (?, ?, ?, ?)`,
			i+1, md.SeqID, md.SeqLen, md.SeqMD5); err != nil {
			return fmt.Errorf("writing genome metadata: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO run_info (key, value) VALUES ('run_id', ?)`, runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *sqliteBackend) getMetadata() (GenomeMetadata, string, error) {
	var meta GenomeMetadata
	if err := b.db.Select(&meta,
		`SELECT seq_id, seq_len, seq_md5 FROM genome_metadata ORDER BY chrom`); err != nil {
		return nil, "", fmt.Errorf("reading genome metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, "", fmt.Errorf("population store has no genome metadata")
	}
	var runID string
	err := b.db.Get(&runID, `SELECT value FROM run_info WHERE key = 'run_id'`)
	if err != nil && err != sql.ErrNoRows {
		return nil, "", err
	}
	return meta, runID, nil
}

func (b *sqliteBackend) putMasterList(chrom int, ml *MasterVariantList) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(
		`INSERT INTO master_list (chrom, idx, pos, stop, ref, alt, p) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range ml.Variants {
		if _, err := stmt.Exec(chrom, i, v.Pos, v.Stop, v.Ref, v.Alt, v.P); err != nil {
			return fmt.Errorf("writing master list chrom %d: %w", chrom, err)
		}
	}
	return tx.Commit()
}

func (b *sqliteBackend) getMasterList(chrom int) (*MasterVariantList, error) {
	var variants []VariantRecord
	if err := b.db.Select(&variants,
		`SELECT pos, stop, ref, alt, p FROM master_list WHERE chrom = ? ORDER BY idx`, chrom); err != nil {
		return nil, fmt.Errorf("reading master list chrom %d: %w", chrom, err)
	}
	if len(variants) == 0 {
		n, err := b.masterListLen(chrom)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("chrom %d: %w", chrom, ErrNoMasterList)
		}
	}
	ml := &MasterVariantList{Variants: variants}
	ml.Freeze()
	return ml, nil
}

func (b *sqliteBackend) masterListLen(chrom int) (int, error) {
	var n int
	err := b.db.Get(&n, `SELECT COUNT(*) FROM master_list WHERE chrom = ?`, chrom)
	if err != nil {
		return -1, err
	}
	if n == 0 {
		// Zero rows means unset only when the chromosome has no samples;
		// an empty catalogue with samples is still a set catalogue.
		var s int
		if err := b.db.Get(&s, `SELECT COUNT(*) FROM sample_genotype WHERE chrom = ?`, chrom); err != nil {
			return -1, err
		}
		if s == 0 {
			return -1, nil
		}
	}
	return n, nil
}

func (b *sqliteBackend) appendSample(chrom int, sampleName string, gt SampleGenotype) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(
		`INSERT INTO sample_genotype (chrom, sample_name, ord, idx, gt) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for ord, e := range gt {
		if _, err := stmt.Exec(chrom, sampleName, ord, e.Index, e.GT); err != nil {
			return fmt.Errorf("writing sample %s chrom %d: %w", sampleName, chrom, err)
		}
	}
	return tx.Commit()
}

func (b *sqliteBackend) getSample(chrom int, sampleName string) (SampleGenotype, error) {
	var gt SampleGenotype
	if err := b.db.Select(&gt,
		`SELECT idx, gt FROM sample_genotype WHERE chrom = ? AND sample_name = ? ORDER BY ord`,
		chrom, sampleName); err != nil {
		return nil, fmt.Errorf("reading sample %s chrom %d: %w", sampleName, chrom, err)
	}
	if len(gt) == 0 {
		return nil, fmt.Errorf("chrom %d has no sample %q", chrom, sampleName)
	}
	return gt, nil
}

func (b *sqliteBackend) sampleNames() ([]string, error) {
	var names []string
	if err := b.db.Select(&names,
		`SELECT DISTINCT sample_name FROM sample_genotype ORDER BY sample_name`); err != nil {
		return nil, err
	}
	return names, nil
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
