package catalog

import "fmt"

// Kind names one of the three catalog namespaces, used by the config-editor
// API routes (`/config/{kind}/{id}`).
type Kind string

const (
	KindProgram Kind = "programs"
	KindService Kind = "services"
	KindJob     Kind = "jobs"
)

// idTaken reports which namespace already holds id. A program whose id equals
// component is not counted: a service or job may reuse its program's id.
func (c *Catalog) idTaken(id, component string) (Kind, bool) {
	if _, ok := c.Programs[id]; ok && component != id {
		return KindProgram, true
	}
	if _, ok := c.Services[id]; ok {
		return KindService, true
	}
	if _, ok := c.Jobs[id]; ok {
		return KindJob, true
	}
	return "", false
}

// AddProgram inserts a new program, rejecting id collisions across all
// three namespaces.
func (c *Catalog) AddProgram(id string, p *Program) error {
	if owner, taken := c.idTaken(id, ""); taken {
		return fmt.Errorf("%w: %q already used by %s", ErrDuplicateID, id, owner)
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: id %q does not match %s", ErrInvalidCatalog, id, idPatternDoc)
	}
	p.ID = id
	c.Programs[id] = p
	c.programOrder = append(c.programOrder, id)
	return nil
}

// AddService inserts a new service, rejecting id collisions other than
// with the program it names as its component.
func (c *Catalog) AddService(id string, s *Service) error {
	if owner, taken := c.idTaken(id, s.Component); taken {
		return fmt.Errorf("%w: %q already used by %s", ErrDuplicateID, id, owner)
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: id %q does not match %s", ErrInvalidCatalog, id, idPatternDoc)
	}
	s.ID = id
	c.Services[id] = s
	c.serviceOrder = append(c.serviceOrder, id)
	return nil
}

// AddJob inserts a new job, rejecting id collisions other than with the
// program it names as its component.
func (c *Catalog) AddJob(id string, j *Job) error {
	if owner, taken := c.idTaken(id, j.Component); taken {
		return fmt.Errorf("%w: %q already used by %s", ErrDuplicateID, id, owner)
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: id %q does not match %s", ErrInvalidCatalog, id, idPatternDoc)
	}
	if j.Timezone == "" {
		j.Timezone = defaultTimezone
	}
	j.ID = id
	c.Jobs[id] = j
	c.jobOrder = append(c.jobOrder, id)
	return nil
}

// Delete removes an entry of the given kind, returning ErrNotFound if absent.
func (c *Catalog) Delete(kind Kind, id string) error {
	switch kind {
	case KindProgram:
		if _, ok := c.Programs[id]; !ok {
			return fmt.Errorf("%w: programs.%s", ErrNotFound, id)
		}
		delete(c.Programs, id)
	case KindService:
		if _, ok := c.Services[id]; !ok {
			return fmt.Errorf("%w: services.%s", ErrNotFound, id)
		}
		delete(c.Services, id)
	case KindJob:
		if _, ok := c.Jobs[id]; !ok {
			return fmt.Errorf("%w: jobs.%s", ErrNotFound, id)
		}
		delete(c.Jobs, id)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCatalog, kind)
	}
	return nil
}
