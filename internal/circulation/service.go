// internal/circulation/service.go
package circulation

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"biblios/internal/audit"
	"biblios/internal/inventory"
	"biblios/internal/ledger"
	"biblios/internal/patrons"
	"biblios/internal/workflow"
)

// Service is the façade the outside world calls. Every mutating operation
// checks the principal's role or ownership before any business logic runs.
type Service struct {
	inv      inventory.Store
	ledger   *ledger.Ledger
	workflow *workflow.Workflow
	registry *patrons.Registry
	trail    audit.Log
}

// NewService composes the circulation core.
func NewService(inv inventory.Store, led *ledger.Ledger, wf *workflow.Workflow, reg *patrons.Registry, trail audit.Log) *Service {
	return &Service{inv: inv, ledger: led, workflow: wf, registry: reg, trail: trail}
}

// Search finds books by title, author or accession number. It is open to
// unauthenticated callers.
func (s *Service) Search(ctx context.Context, query string) ([]*inventory.Book, error) {
	return s.inv.Search(ctx, query)
}

// Signup registers a new patron account.
func (s *Service) Signup(ctx context.Context, in patrons.Signup) (*patrons.Patron, error) {
	return s.registry.Register(ctx, in)
}

// AddBook catalogues a new title.
func (s *Service) AddBook(ctx context.Context, pr Principal, in AddBookInput) (*inventory.Book, error) {
	if !pr.Admin() {
		return nil, ErrForbidden
	}
	in.AccessionNo = strings.TrimSpace(in.AccessionNo)
	in.Department = strings.ToUpper(strings.TrimSpace(in.Department))
	switch {
	case in.Title == "" || in.Author == "" || in.AccessionNo == "":
		return nil, ErrInvalidBook
	case in.TotalCopies < 0:
		return nil, ErrInvalidBook
	case !inventory.ValidDepartment(in.Department):
		return nil, ErrInvalidBook
	}

	book := &inventory.Book{
		ID:              uuid.New(),
		AccessionNo:     in.AccessionNo,
		Title:           in.Title,
		Author:          in.Author,
		Department:      in.Department,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if err := s.inv.Add(ctx, book); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventBookAdded, book.ID, pr, map[string]string{"acc_no": book.AccessionNo})
	return book, nil
}

// DeleteBook removes a title from the catalog. It fails with
// inventory.ErrBookInUse while unreturned loans or pending requests still
// reference the book.
func (s *Service) DeleteBook(ctx context.Context, pr Principal, accNo string) error {
	if !pr.Admin() {
		return ErrForbidden
	}
	book, err := s.inv.GetByAccession(ctx, accNo)
	if err != nil {
		return err
	}

	unreturned, err := s.ledger.UnreturnedCountByBook(ctx, book.ID)
	if err != nil {
		return err
	}
	pending, err := s.workflow.PendingCountByBook(ctx, book.ID)
	if err != nil {
		return err
	}
	if unreturned > 0 || pending > 0 {
		return inventory.ErrBookInUse
	}

	if err := s.inv.Remove(ctx, book.ID); err != nil {
		return err
	}
	s.record(ctx, audit.EventBookRemoved, book.ID, pr, map[string]string{"acc_no": book.AccessionNo})
	return nil
}

// RequestBook queues a borrow request for the caller.
func (s *Service) RequestBook(ctx context.Context, pr Principal, bookID uuid.UUID) (*workflow.BorrowRequest, error) {
	req, err := s.workflow.Create(ctx, pr.ID, bookID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventRequestCreated, req.ID, pr, map[string]string{"book_id": bookID.String()})
	return req, nil
}

// DecideRequest approves or rejects a pending request.
func (s *Service) DecideRequest(ctx context.Context, pr Principal, requestID uuid.UUID, decision workflow.Decision) (*ledger.Loan, error) {
	if !pr.Admin() {
		return nil, ErrForbidden
	}
	loan, err := s.workflow.Decide(ctx, requestID, decision)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventRequestDecided, requestID, pr, map[string]string{"decision": string(decision)})
	if loan != nil {
		s.record(ctx, audit.EventLoanIssued, loan.ID, pr, map[string]string{"book_id": loan.BookID.String()})
	}
	return loan, nil
}

// DirectIssue hands a copy straight to a patron, bypassing the queue.
func (s *Service) DirectIssue(ctx context.Context, pr Principal, patronEmail, accessionNo string) (*ledger.Loan, error) {
	if !pr.Admin() {
		return nil, ErrForbidden
	}
	loan, err := s.workflow.DirectIssue(ctx, patronEmail, accessionNo)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventLoanIssued, loan.ID, pr, map[string]string{"book_id": loan.BookID.String()})
	return loan, nil
}

// RequestReturn flags the caller's own loan for return approval.
func (s *Service) RequestReturn(ctx context.Context, pr Principal, loanID uuid.UUID) error {
	if err := s.ledger.RequestReturn(ctx, loanID, pr.ID); err != nil {
		return err
	}
	s.record(ctx, audit.EventReturnRequested, loanID, pr, nil)
	return nil
}

// ApproveReturn closes a loan, collecting the fine computed as of now.
func (s *Service) ApproveReturn(ctx context.Context, pr Principal, loanID uuid.UUID) (float64, error) {
	if !pr.Admin() {
		return 0, ErrForbidden
	}
	fine, err := s.ledger.ApproveReturn(ctx, loanID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	s.record(ctx, audit.EventLoanReturned, loanID, pr, map[string]float64{"fine": fine})
	return fine, nil
}

// DashboardStats aggregates the admin overview.
func (s *Service) DashboardStats(ctx context.Context, pr Principal) (*DashboardStats, error) {
	if !pr.Admin() {
		return nil, ErrForbidden
	}

	titles, available, err := s.inv.Totals(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.ledger.Active(ctx)
	if err != nil {
		return nil, err
	}
	returnRequested, err := s.ledger.ReturnRequested(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.workflow.Pending(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stats := &DashboardStats{
		TotalBooks:      titles,
		AvailableCopies: available,
		BooksLent:       len(active),
		BorrowRequests:  make([]RequestView, 0, len(pending)),
		ReturnRequests:  make([]LoanView, 0, len(returnRequested)),
		ActiveLoans:     make([]LoanView, 0, len(active)),
	}
	for _, req := range pending {
		stats.BorrowRequests = append(stats.BorrowRequests, s.requestView(ctx, req))
	}
	for _, loan := range returnRequested {
		stats.ReturnRequests = append(stats.ReturnRequests, s.loanView(ctx, loan, now))
	}
	for _, loan := range active {
		stats.ActiveLoans = append(stats.ActiveLoans, s.loanView(ctx, loan, now))
	}
	return stats, nil
}

// Profile is the caller's self view: identity, token usage and their own
// active loans and pending requests with live fine estimates.
func (s *Service) Profile(ctx context.Context, pr Principal) (*Profile, error) {
	patron, err := s.registry.Get(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	loans, err := s.ledger.ActiveByPatron(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	requests, err := s.workflow.PendingByPatron(ctx, pr.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := &Profile{
		FullName:        patron.FullName,
		Email:           patron.Email,
		Role:            patron.Role,
		TokensTotal:     s.workflow.Policy().TokenLimit(patron.Role),
		TokensUsed:      len(loans) + len(requests),
		ActiveLoans:     make([]ProfileLoan, 0, len(loans)),
		PendingRequests: make([]ProfileRequest, 0, len(requests)),
	}
	for _, loan := range loans {
		pl := ProfileLoan{
			LoanID:       loan.ID,
			IssueDate:    loan.IssueDate,
			DueDate:      loan.DueDate,
			Status:       string(loan.Status),
			FineEstimate: s.ledger.EstimateFine(loan, now),
		}
		if book, err := s.inv.Get(ctx, loan.BookID); err == nil {
			pl.Title = book.Title
			pl.AccessionNo = book.AccessionNo
		}
		profile.ActiveLoans = append(profile.ActiveLoans, pl)
	}
	for _, req := range requests {
		prq := ProfileRequest{RequestID: req.ID, RequestedAt: req.RequestedAt}
		if book, err := s.inv.Get(ctx, req.BookID); err == nil {
			prq.Title = book.Title
			prq.AccessionNo = book.AccessionNo
		}
		profile.PendingRequests = append(profile.PendingRequests, prq)
	}
	return profile, nil
}

// Users lists every patron with their active loan count.
func (s *Service) Users(ctx context.Context, pr Principal) ([]UserView, error) {
	if !pr.Admin() {
		return nil, ErrForbidden
	}
	all, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(all))
	for _, p := range all {
		count, err := s.ledger.ActiveCountByPatron(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserView{
			ID:          p.ID,
			FullName:    p.FullName,
			Email:       p.Email,
			Role:        p.Role,
			ActiveLoans: count,
		})
	}
	return out, nil
}

// DeletePatron removes a non-admin patron account.
func (s *Service) DeletePatron(ctx context.Context, pr Principal, id uuid.UUID) error {
	if !pr.Admin() {
		return ErrForbidden
	}
	return s.registry.Delete(ctx, id)
}

// requestView decorates a request with patron and book details for display.
func (s *Service) requestView(ctx context.Context, req *workflow.BorrowRequest) RequestView {
	view := RequestView{RequestID: req.ID, RequestedAt: req.RequestedAt}
	if patron, err := s.registry.Get(ctx, req.PatronID); err == nil {
		view.PatronName = patron.FullName
		view.PatronEmail = patron.Email
	}
	if book, err := s.inv.Get(ctx, req.BookID); err == nil {
		view.BookTitle = book.Title
		view.BookAccNo = book.AccessionNo
	}
	return view
}

func (s *Service) loanView(ctx context.Context, loan *ledger.Loan, now time.Time) LoanView {
	view := LoanView{
		LoanID:       loan.ID,
		IssueDate:    loan.IssueDate,
		DueDate:      loan.DueDate,
		Status:       string(loan.Status),
		FineEstimate: s.ledger.EstimateFine(loan, now),
	}
	if patron, err := s.registry.Get(ctx, loan.PatronID); err == nil {
		view.PatronName = patron.FullName
		view.PatronEmail = patron.Email
	}
	if book, err := s.inv.Get(ctx, loan.BookID); err == nil {
		view.BookTitle = book.Title
		view.BookAccNo = book.AccessionNo
	}
	return view
}

// record appends to the audit trail; failures are logged, never surfaced.
func (s *Service) record(ctx context.Context, typ audit.EventType, subject uuid.UUID, pr Principal, detail any) {
	event := audit.Event{Type: typ, SubjectID: subject, ActorID: pr.ID}
	if detail != nil {
		event.Detail = audit.Detail(detail)
	}
	if err := s.trail.Record(ctx, event); err != nil {
		log.Printf("[WARN] audit %s for %s: %v", typ, subject, err)
	}
}
